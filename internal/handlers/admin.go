package handlers

import (
	"strings"

	apperrors "turapay/internal/errors"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/admin"
	"turapay/internal/services/kyc"
	"turapay/internal/services/rates"
	"turapay/internal/services/settings"
	"turapay/internal/services/transfer"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the back-office review screens.
type AdminHandler struct {
	transfers transfer.Service
	review    admin.Service
	settings  settings.Service
	rates     rates.Service
	kyc       kyc.Service
	entries   repositories.ReconciliationRepository
	expose    bool
}

func NewAdminHandler(
	transfers transfer.Service,
	review admin.Service,
	settingsSvc settings.Service,
	ratesSvc rates.Service,
	kycSvc kyc.Service,
	entries repositories.ReconciliationRepository,
	exposeInternalErrors bool,
) *AdminHandler {
	return &AdminHandler{
		transfers: transfers,
		review:    review,
		settings:  settingsSvc,
		rates:     ratesSvc,
		kyc:       kycSvc,
		entries:   entries,
		expose:    exposeInternalErrors,
	}
}

// ListTransactions handles GET /api/admin/transactions?status=&page=&limit=.
func (h *AdminHandler) ListTransactions(c *fiber.Ctx) error {
	status := models.TransactionStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		return utils.BadRequest(c, "Invalid status filter")
	}

	p := utils.GetPagination(c, 1, 20)
	transactions, total, err := h.transfers.List(c.UserContext(), status, p.Limit, p.Offset)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(transactions, p))
}

func (h *AdminHandler) GetTransaction(c *fiber.Ctx) error {
	tx, err := h.transfers.Get(c.UserContext(), c.Params("id"), 0)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, tx)
}

func (h *AdminHandler) ApproveTransaction(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req admin.ApproveRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	tx, err := h.review.Approve(c.UserContext(), c.Params("id"), claims.UserID, req)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, tx)
}

func (h *AdminHandler) RejectTransaction(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req admin.RejectRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	tx, err := h.review.Reject(c.UserContext(), c.Params("id"), claims.UserID, req)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, tx)
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)

	users, total, err := h.review.ListUsers(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(users, p))
}

// VerifyUser handles POST /api/admin/users/:id/verify {verified}.
func (h *AdminHandler) VerifyUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	var req struct {
		Verified *bool `json:"verified" validate:"required"`
	}
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	user, err := h.review.SetUserVerified(c.UserContext(), id, *req.Verified)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, user)
}

// UpdateSetting handles PUT /api/admin/settings/:key {value}.
func (h *AdminHandler) UpdateSetting(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req struct {
		Value *string `json:"value" validate:"required"`
	}
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	setting, err := h.settings.Update(c.UserContext(), c.Params("key"), *req.Value, claims.UserID)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, setting)
}

// SetRate handles PUT /api/admin/rates/:currency {rate}.
func (h *AdminHandler) SetRate(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req struct {
		Rate float64 `json:"rate"`
	}
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	override, err := h.rates.SetOverride(c.UserContext(), strings.ToUpper(c.Params("currency")), req.Rate, claims.UserID)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, override)
}

func (h *AdminHandler) DeleteRate(c *fiber.Ctx) error {
	if err := h.rates.DeleteOverride(c.UserContext(), strings.ToUpper(c.Params("currency"))); err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, fiber.Map{"message": "Exchange rate override removed"})
}

// ListKYC handles GET /api/admin/kyc?status=pending.
func (h *AdminHandler) ListKYC(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)

	items, total, err := h.kyc.List(c.UserContext(), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(items, p))
}

func (h *AdminHandler) ApproveKYC(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	record, err := h.kyc.Approve(c.UserContext(), id, claims.UserID)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, record)
}

func (h *AdminHandler) RejectKYC(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	var req struct {
		Reason string `json:"reason" validate:"required,max=1000"`
	}
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	record, err := h.kyc.Reject(c.UserContext(), id, claims.UserID, req.Reason)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, record)
}

// ListReconciliation shows queued, resolved and exhausted reconciliation
// entries so operators can follow up on alerts.
func (h *AdminHandler) ListReconciliation(c *fiber.Ctx) error {
	state := c.Query("state")
	switch state {
	case "", models.ReconcileOpen, models.ReconcileResolved, models.ReconcileExhausted:
	default:
		return utils.Error(c, apperrors.ErrValidation.WithMessage("state: must be one of open resolved exhausted"), h.expose)
	}

	p := utils.GetPagination(c, 1, 20)
	entries, total, err := h.entries.List(c.UserContext(), state, p.Limit, p.Offset)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(entries, p))
}
