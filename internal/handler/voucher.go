package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/handler/dto"
	"github.com/assetgate/assetgate/internal/service"
)

// VoucherHandler handles voucher administration and redemption.
type VoucherHandler struct {
	svc    *service.VoucherService
	logger *slog.Logger
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(svc *service.VoucherService, logger *slog.Logger) *VoucherHandler {
	return &VoucherHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/v1/vouchers (superadmin).
func (h *VoucherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	voucher, err := h.svc.CreateVoucher(r.Context(), req.Name, req.Limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToVoucherResponse(voucher))
}

// Get handles GET /api/v1/vouchers/{code} (superadmin).
func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code", "voucher code is required")
		return
	}

	voucher, err := h.svc.GetVoucher(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToVoucherResponse(voucher))
}

// List handles GET /api/v1/vouchers (superadmin).
func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := service.ListVouchersInput{
		Name:    query.Get("name"),
		Code:    query.Get("code"),
		OwnerID: query.Get("owner_id"),
		Page:    queryInt(r, "page"),
		PerPage: queryInt(r, "per_page"),
		Sort:    query.Get("sort"),
	}

	vouchers, total, err := h.svc.ListVouchers(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToVoucherListResponse(
		vouchers, normalizedPage(input.Page), normalizedPerPage(input.PerPage), total))
}

// ListOwn handles GET /api/v1/vouchers/mine. Returns the caller's
// consumable vouchers, oldest grant first.
func (h *VoucherHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	vouchers, err := h.svc.ListOwnVouchers(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	data := make([]dto.VoucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		data = append(data, dto.ToVoucherResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// Update handles PUT /api/v1/vouchers/{code} (superadmin).
func (h *VoucherHandler) Update(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code", "voucher code is required")
		return
	}

	var req dto.UpdateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	voucher, err := h.svc.UpdateVoucher(r.Context(), code, req.Name, req.Limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToVoucherResponse(voucher))
}

// Redeem handles POST /api/v1/vouchers/redeem. Binds an unowned
// voucher to the caller exactly once.
func (h *VoucherHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	var req dto.RedeemVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	voucher, err := h.svc.Redeem(r.Context(), identity.UserID, req.Code)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToVoucherResponse(voucher))
}

// Delete handles DELETE /api/v1/vouchers/{code} (superadmin).
func (h *VoucherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing_code", "voucher code is required")
		return
	}

	if err := h.svc.DeleteVoucher(r.Context(), code); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
