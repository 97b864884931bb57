package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type BorrowingStatus string

const (
	BorrowingStatusActive   BorrowingStatus = "active"
	BorrowingStatusReturned BorrowingStatus = "returned"
	// BorrowingStatusOverdue is never written by this service; overdue is derived from due_date.
	// It remains a valid filter value and may appear on imported rows.
	BorrowingStatusOverdue BorrowingStatus = "overdue"
	BorrowingStatusLost    BorrowingStatus = "lost"
)

type Borrowing struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Reference         string          `gorm:"uniqueIndex;size:26" json:"reference"`
	StudentID         *uint           `gorm:"index" json:"student_id,omitempty"`
	StaffID           *uint           `gorm:"index" json:"staff_id,omitempty"`
	BorrowerType      BorrowerType    `gorm:"size:20" json:"borrower_type"`
	BookID            uint            `gorm:"index;not null" json:"book_id"`
	Book              *Book           `gorm:"foreignKey:BookID" json:"book,omitempty"`
	BookCopyID        *uint           `gorm:"index" json:"book_copy_id,omitempty"`
	TrackingCode      string          `gorm:"index;size:64" json:"tracking_code,omitempty"`
	BorrowedDate      time.Time       `gorm:"not null" json:"borrowed_date"`
	DueDate           time.Time       `gorm:"index;not null" json:"due_date"`
	ReturnedDate      *time.Time      `json:"returned_date,omitempty"`
	Status            BorrowingStatus `gorm:"index;size:20;default:active" json:"status"`
	ConditionAtIssue  Condition       `gorm:"size:20" json:"condition_at_issue"`
	ConditionAtReturn Condition       `gorm:"size:20" json:"condition_at_return,omitempty"`
	FineAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fine_amount"`
	IsLost            bool            `gorm:"index;default:false" json:"is_lost"`
	ReturnNotes       string          `gorm:"size:1000" json:"return_notes,omitempty"`
	IssuedBy          string          `gorm:"size:100" json:"issued_by,omitempty"`
	ReturnedBy        string          `gorm:"size:100" json:"returned_by,omitempty"`
	BulkGroup         string          `gorm:"index;size:26" json:"bulk_group,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Borrowing) TableName() string {
	return "borrowings"
}

func (b Borrowing) Patron() PatronRef {
	return PatronRef{StudentID: b.StudentID, StaffID: b.StaffID}
}

// IsOpen reports whether the loan still counts against the patron (active, including lost).
func (b Borrowing) IsOpen() bool {
	return b.Status == BorrowingStatusActive || b.Status == BorrowingStatusOverdue
}

// IsOverdue reports whether an open, not-lost loan is past due on the given day.
func (b Borrowing) IsOverdue(today time.Time) bool {
	return b.IsOpen() && !b.IsLost && b.DueDate.Before(today)
}

// BorrowingFilter narrows borrowing listings. Status accepts the derived views
// "overdue" and "lost" in addition to stored statuses.
type BorrowingFilter struct {
	Status BorrowingStatus
	Patron PatronRef
	BookID uint
	Today  time.Time // start of the current day, used by the overdue view
}

// BorrowingCounts is the dashboard breakdown of loans. Overdue is a subset of Active.
type BorrowingCounts struct {
	Active   int64 `json:"active"`
	Overdue  int64 `json:"overdue"`
	Returned int64 `json:"returned"`
	Lost     int64 `json:"lost"`
}
