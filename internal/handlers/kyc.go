package handlers

import (
	"turapay/internal/services/kyc"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type KYCHandler struct {
	service kyc.Service
	expose  bool
}

func NewKYCHandler(s kyc.Service, exposeInternalErrors bool) *KYCHandler {
	return &KYCHandler{service: s, expose: exposeInternalErrors}
}

func (h *KYCHandler) Submit(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var req kyc.SubmitRequest
	if err := parseBody(c, &req); err != nil {
		return utils.Error(c, err, h.expose)
	}

	record, err := h.service.Submit(c.UserContext(), claims.UserID, req)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Created(c, record)
}

// Status returns the caller's latest submission.
func (h *KYCHandler) Status(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	record, err := h.service.Latest(c.UserContext(), claims.UserID)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, record)
}
