package handlers

import (
	"turapay/internal/services/rates"
	"turapay/internal/services/settings"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler serves the read-only settings and rate table.
type SettingsHandler struct {
	settings settings.Service
	rates    rates.Service
	expose   bool
}

func NewSettingsHandler(settingsSvc settings.Service, ratesSvc rates.Service, exposeInternalErrors bool) *SettingsHandler {
	return &SettingsHandler{settings: settingsSvc, rates: ratesSvc, expose: exposeInternalErrors}
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	all, err := h.settings.All(c.UserContext())
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, all)
}

func (h *SettingsHandler) GetRates(c *fiber.Ctx) error {
	table, err := h.rates.Table(c.UserContext())
	if err != nil {
		return utils.Error(c, err, h.expose)
	}
	return utils.Success(c, table)
}
