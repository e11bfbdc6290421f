package errors

import "net/http"

var (
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
		Status:  http.StatusNotFound,
	}
	ErrStatusConflict = &DomainError{
		Code:    "STATUS_CONFLICT",
		Message: "transaction status changed",
		Status:  http.StatusConflict,
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "invalid status transition",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrUnverifiedLimitExceeded = &DomainError{
		Code:    "UNVERIFIED_LIMIT_EXCEEDED",
		Message: "amount exceeds the limit for unverified accounts, verify your account to send more",
		Status:  http.StatusBadRequest,
	}
	ErrMaxLimitExceeded = &DomainError{
		Code:    "MAX_LIMIT_EXCEEDED",
		Message: "amount exceeds the maximum transfer limit",
		Status:  http.StatusBadRequest,
	}
	ErrProofNotAllowed = &DomainError{
		Code:    "PROOF_NOT_ALLOWED",
		Message: "payment proof can only be attached to pending transfers",
		Status:  http.StatusConflict,
	}
	ErrUnsupportedCurrency = &DomainError{
		Code:    "UNSUPPORTED_CURRENCY",
		Message: "no exchange rate for currency",
		Status:  http.StatusBadRequest,
	}
)

var (
	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
		Status:  http.StatusNotFound,
	}
	ErrKYCNotFound = &DomainError{
		Code:    "KYC_NOT_FOUND",
		Message: "kyc submission not found",
		Status:  http.StatusNotFound,
	}
	ErrKYCAlreadyReviewed = &DomainError{
		Code:    "KYC_ALREADY_REVIEWED",
		Message: "kyc submission already reviewed",
		Status:  http.StatusConflict,
	}
	ErrUnknownSetting = &DomainError{
		Code:    "UNKNOWN_SETTING",
		Message: "unknown setting",
		Status:  http.StatusNotFound,
	}
	ErrInvalidSettingValue = &DomainError{
		Code:    "INVALID_SETTING_VALUE",
		Message: "setting value must be a non-negative number",
		Status:  http.StatusBadRequest,
	}
	ErrInvalidRate = &DomainError{
		Code:    "INVALID_RATE",
		Message: "rate must be greater than zero",
		Status:  http.StatusBadRequest,
	}
	ErrRateNotFound = &DomainError{
		Code:    "RATE_NOT_FOUND",
		Message: "exchange rate override not found",
		Status:  http.StatusNotFound,
	}
)
