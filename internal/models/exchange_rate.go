package models

import "time"

// ExchangeRate is an operator override of the live USD rate for one currency.
type ExchangeRate struct {
	Currency  string    `gorm:"primaryKey;type:varchar(8)" json:"currency"`
	Rate      float64   `gorm:"not null" json:"rate"`
	UpdatedBy *uint     `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
