package errors

import "net/http"

var (
	ErrUnauthorized = &DomainError{
		Code:    "UNAUTHORIZED",
		Message: "Unauthorized",
		Status:  http.StatusUnauthorized,
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "Invalid amount",
		Status:  http.StatusBadRequest,
	}
	ErrMissingCardDetails = &DomainError{
		Code:    "MISSING_CARD_DETAILS",
		Message: "Card details are required",
		Status:  http.StatusBadRequest,
	}
	ErrMissingAccountNumber = &DomainError{
		Code:    "MISSING_ACCOUNT_NUMBER",
		Message: "Account number is required",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidCardExpiry = &DomainError{
		Code:    "INVALID_CARD_EXPIRY",
		Message: "Invalid card expiry",
		Status:  http.StatusBadRequest,
	}
	ErrGatewayMisconfigured = &DomainError{
		Code:    "GATEWAY_MISCONFIGURED",
		Message: "Payment gateway not configured",
		Status:  http.StatusInternalServerError,
	}
	ErrInternal = &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
)
