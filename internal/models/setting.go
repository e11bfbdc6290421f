package models

import "time"

// Setting keys read by the transfer flow.
const (
	SettingTransferFeePercentage  = "transfer_fee_percentage"
	SettingUnverifiedSendLimit    = "unverified_send_limit"
	SettingMaxTransferLimit       = "max_transfer_limit"
	SettingPaymentRecipientName   = "payment_recipient_name"
	SettingPaymentRecipientNumber = "payment_recipient_number"
)

// NumericSettings lists the keys whose value must parse as a non-negative number.
var NumericSettings = map[string]bool{
	SettingTransferFeePercentage: true,
	SettingUnverifiedSendLimit:   true,
	SettingMaxTransferLimit:      true,
}

// DefaultSettings seeds the settings table on first start.
var DefaultSettings = map[string]string{
	SettingTransferFeePercentage:  "2",
	SettingUnverifiedSendLimit:    "20",
	SettingMaxTransferLimit:       "1000",
	SettingPaymentRecipientName:   "",
	SettingPaymentRecipientNumber: "",
}

// Setting is one active value per key. Updates overwrite; there is no history.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedBy *uint     `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
