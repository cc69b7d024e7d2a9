package model

import "time"

// Voucher represents a consumable download quota grant.
// A voucher is created unowned by an administrator, bound to exactly
// one user through redemption, and consumed one unit per fulfillment.
type Voucher struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	OwnerID   *string    `json:"owner_id,omitempty"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsRedeemed returns true once the voucher has been bound to a user.
func (v *Voucher) IsRedeemed() bool {
	return v.OwnerID != nil
}

// Consumable reports whether the given user can spend a unit of this voucher.
func (v *Voucher) Consumable(userID string) bool {
	return v.DeletedAt == nil &&
		v.OwnerID != nil && *v.OwnerID == userID &&
		v.Remaining > 0
}
