package model

import "time"

// Notification is an in-app message delivered to a single user.
// Created by the system (or an admin) via a privileged endpoint and
// marked read by its owner.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Read      bool       `json:"read"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Notification field limits enforced at intake.
const (
	MaxNotificationTypeLen    = 20
	MaxNotificationContentLen = 255
)
