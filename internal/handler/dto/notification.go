package dto

import (
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

// CreateNotificationRequest represents the system intake body.
type CreateNotificationRequest struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationListResponse represents a paginated notification list.
type NotificationListResponse struct {
	Data       []NotificationResponse `json:"data"`
	Pagination Pagination             `json:"pagination"`
}

// ToNotificationResponse maps a notification model to its API representation.
func ToNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Content:   n.Content,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// ToNotificationListResponse maps notifications plus pagination metadata.
func ToNotificationListResponse(notifications []*model.Notification, page, perPage, total int) NotificationListResponse {
	data := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		data = append(data, ToNotificationResponse(n))
	}
	return NotificationListResponse{
		Data:       data,
		Pagination: Pagination{Page: page, PerPage: perPage, Total: total},
	}
}
