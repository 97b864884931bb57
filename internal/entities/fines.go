package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type FineType string

const (
	FineTypeOverdue       FineType = "overdue"
	FineTypeLateReturn    FineType = "late_return"
	FineTypeDamaged       FineType = "damaged"
	FineTypePoorCondition FineType = "poor_condition"
	FineTypeFairCondition FineType = "fair_condition"
	FineTypeLostBook      FineType = "lost_book"
	FineTypeStolenBook    FineType = "stolen_book"
	FineTypeTheftVictim   FineType = "theft_victim"
)

// FineTypes lists every fine type the engine knows about.
var FineTypes = []FineType{
	FineTypeOverdue,
	FineTypeLateReturn,
	FineTypeDamaged,
	FineTypePoorCondition,
	FineTypeFairCondition,
	FineTypeLostBook,
	FineTypeStolenBook,
	FineTypeTheftVictim,
}

func (t FineType) Valid() bool {
	for _, known := range FineTypes {
		if t == known {
			return true
		}
	}
	return false
}

type FineStatus string

const (
	FineStatusUnpaid    FineStatus = "unpaid"
	FineStatusPaid      FineStatus = "paid"
	FineStatusCleared   FineStatus = "cleared"
	FineStatusCollected FineStatus = "collected"
)

type Fine struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	StudentID    *uint           `gorm:"index" json:"student_id,omitempty"`
	StaffID      *uint           `gorm:"index" json:"staff_id,omitempty"`
	BorrowerType BorrowerType    `gorm:"size:20" json:"borrower_type"`
	BorrowingID  *uint           `gorm:"index:idx_fine_borrowing_type" json:"borrowing_id,omitempty"`
	FineType     FineType        `gorm:"index:idx_fine_borrowing_type;size:30" json:"fine_type"`
	// DedupKey is set only on fines created with duplicate prevention, one per borrowing and type.
	DedupKey *string `gorm:"uniqueIndex;size:64" json:"-"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description  string          `gorm:"size:500" json:"description"`
	Status       FineStatus      `gorm:"index;size:20;default:unpaid" json:"status"`
	CreatedBy    string          `gorm:"size:100" json:"created_by,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Fine) TableName() string {
	return "fines"
}

func (f Fine) Patron() PatronRef {
	return PatronRef{StudentID: f.StudentID, StaffID: f.StaffID}
}

// FineSetting overrides the built-in amount for a fine type. For overdue it is the per-day rate.
type FineSetting struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	FineType    FineType        `gorm:"uniqueIndex;size:30" json:"fine_type"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Description string          `gorm:"size:500" json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (FineSetting) TableName() string {
	return "fine_settings"
}

// FineFilter narrows fine listings.
type FineFilter struct {
	Patron      PatronRef
	BorrowingID *uint
	Status      FineStatus
	FineType    FineType
}

// FineTotal is an aggregated amount for one group (patron or class) and status.
type FineTotal struct {
	StudentID *uint           `json:"student_id,omitempty"`
	StaffID   *uint           `json:"staff_id,omitempty"`
	ClassID   *uint           `json:"class_id,omitempty"`
	Status    FineStatus      `json:"status"`
	Count     int64           `json:"count"`
	Amount    decimal.Decimal `json:"amount"`
}
