package models

import "gorm.io/gorm"

const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

type KYCVerification struct {
	gorm.Model
	UserID          uint   `gorm:"not null;index" json:"user_id"`
	DocumentType    string `gorm:"not null" json:"document_type"`
	DocumentURL     string `gorm:"not null" json:"document_url"`
	Status          string `gorm:"default:'pending'" json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	ReviewedBy      *uint  `json:"reviewed_by,omitempty"`
}
