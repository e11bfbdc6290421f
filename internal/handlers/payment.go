package handlers

import (
	"errors"

	"turapay/internal/gateway"
	"turapay/internal/models"
	"turapay/internal/services/payment"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler fronts the gateway collection and disbursement calls.
type PaymentHandler struct {
	payments payment.Service
	expose   bool
}

func NewPaymentHandler(payments payment.Service, exposeInternalErrors bool) *PaymentHandler {
	return &PaymentHandler{payments: payments, expose: exposeInternalErrors}
}

// Collect creates a collection, or checks one when referenceId is set.
func (h *PaymentHandler) Collect(c *fiber.Ctx) error {
	var req payment.CollectionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}

	resp, err := h.payments.Collect(c.UserContext(), req)
	if err != nil {
		return h.gatewayError(c, err, "Failed to create payment request")
	}
	return utils.Success(c, resp)
}

// Disburse pays out to a receiver, or checks a payout when referenceId is set.
func (h *PaymentHandler) Disburse(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req payment.DisbursementRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	req.CallerID = claims.UserID
	req.CallerIsAdmin = claims.Role == models.RoleAdmin

	resp, err := h.payments.Disburse(c.UserContext(), req)
	if err != nil {
		return h.gatewayError(c, err, "Failed to create disbursement request")
	}
	return utils.Success(c, resp)
}

// gatewayError relays a gateway rejection with its own status and body.
func (h *PaymentHandler) gatewayError(c *fiber.Ctx, err error, message string) error {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return utils.Respond(c, apiErr.StatusCode, fiber.Map{
			"error":   message,
			"details": apiErr.Details,
		})
	}
	return utils.Error(c, err, h.expose)
}
