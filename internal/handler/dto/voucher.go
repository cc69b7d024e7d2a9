package dto

import (
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

// CreateVoucherRequest represents the request body for creating a voucher.
type CreateVoucherRequest struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

// UpdateVoucherRequest represents the request body for updating a voucher.
type UpdateVoucherRequest struct {
	Name  string `json:"name"`
	Limit int    `json:"limit"`
}

// RedeemVoucherRequest represents the request body for redeeming a voucher.
type RedeemVoucherRequest struct {
	Code string `json:"code"`
}

// VoucherResponse represents a voucher in API responses.
type VoucherResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoucherListResponse represents a paginated list of vouchers.
type VoucherListResponse struct {
	Data       []VoucherResponse `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// ToVoucherResponse maps a voucher model to its API representation.
func ToVoucherResponse(v *model.Voucher) VoucherResponse {
	return VoucherResponse{
		ID:        v.ID,
		Code:      v.Code,
		Name:      v.Name,
		Limit:     v.Limit,
		Remaining: v.Remaining,
		OwnerID:   v.OwnerID,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// ToVoucherListResponse maps vouchers plus pagination metadata.
func ToVoucherListResponse(vouchers []*model.Voucher, page, perPage, total int) VoucherListResponse {
	data := make([]VoucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		data = append(data, ToVoucherResponse(v))
	}
	return VoucherListResponse{
		Data:       data,
		Pagination: Pagination{Page: page, PerPage: perPage, Total: total},
	}
}
