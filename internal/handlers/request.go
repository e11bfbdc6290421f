package handlers

import (
	"errors"
	"strconv"

	apperrors "turapay/internal/errors"
	"turapay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

// parseBody decodes the JSON body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.ErrInvalidRequestBody
	}
	if err := validation.Struct(dst); err != nil {
		var verr validation.ValidationError
		if errors.As(err, &verr) {
			return apperrors.ErrValidation.WithMessage(verr.Error())
		}
		return err
	}
	return nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.ErrInvalidID
	}
	return uint(id), nil
}
