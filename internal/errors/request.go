package errors

import "net/http"

var (
	ErrInvalidRequestBody = &DomainError{
		Code:    "INVALID_REQUEST_BODY",
		Message: "Invalid request body",
		Status:  http.StatusBadRequest,
	}
	ErrValidation = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "Validation failed",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidID = &DomainError{
		Code:    "INVALID_ID",
		Message: "Invalid id",
		Status:  http.StatusBadRequest,
	}
)
