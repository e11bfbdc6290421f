package handlers

import (
	"crypto/subtle"
	"log"

	"turapay/internal/services/payment"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const callbackSecretHeader = "X-Callback-Secret"

// WebhookHandler receives asynchronous status callbacks from the gateway.
type WebhookHandler struct {
	processor *payment.CallbackProcessor
	secret    string
	expose    bool
}

func NewWebhookHandler(processor *payment.CallbackProcessor, secret string, exposeInternalErrors bool) *WebhookHandler {
	return &WebhookHandler{processor: processor, secret: secret, expose: exposeInternalErrors}
}

func (h *WebhookHandler) Lipila(c *fiber.Ctx) error {
	given := c.Get(callbackSecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.secret)) != 1 {
		log.Printf("Rejected gateway callback from %s: bad secret", c.IP())
		return utils.Unauthorized(c, "Unauthorized")
	}

	var ev payment.CallbackEvent
	if err := parseBody(c, &ev); err != nil {
		return utils.Error(c, err, h.expose)
	}

	outcome, err := h.processor.Handle(c.UserContext(), ev)
	if err != nil {
		return utils.Error(c, err, h.expose)
	}

	return utils.Success(c, fiber.Map{
		"received": true,
		"outcome":  outcome,
	})
}
