package handlers

import (
	"strconv"

	apperrors "turapay/internal/errors"
	"turapay/internal/services/transfer"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// TransferHandler exposes the sender side of cross-border transfers.
type TransferHandler struct {
	service transfer.Service
	expose  bool
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(s transfer.Service, exposeInternalErrors bool) *TransferHandler {
	return &TransferHandler{service: s, expose: exposeInternalErrors}
}

// Create handles POST /api/transfers.
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req transfer.CreateRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	tx, err := h.service.Create(c.UserContext(), claims.UserID, req)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Created(c, tx)
}

// List handles GET /api/transfers?recent=true&page=&limit=.
func (h *TransferHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	p := utils.GetPagination(c, 1, 20)
	recent := c.QueryBool("recent", false)

	transactions, total, err := h.service.ListForSender(c.UserContext(), claims.UserID, recent, p.Limit, p.Offset)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(transactions, p))
}

func (h *TransferHandler) Get(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	tx, err := h.service.Get(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, tx)
}

// AttachProof records the sender's deposit proof while the transfer is pending.
func (h *TransferHandler) AttachProof(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req struct {
		PaymentProofURL string `json:"payment_proof_url" validate:"required,url"`
	}
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	tx, err := h.service.AttachProof(c.UserContext(), c.Params("id"), claims.UserID, req.PaymentProofURL)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, tx)
}

// Quote handles GET /api/transfers/quote?amount=&currency=&payout_currency=.
func (h *TransferHandler) Quote(c *fiber.Ctx) error {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		return utils.Error(c, apperrors.ErrInvalidAmount, h.expose)
	}

	q, err := h.service.Quote(c.UserContext(), amount, c.Query("currency"), c.Query("payout_currency"))
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, q)
}
