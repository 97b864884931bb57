package entities

import "time"

type TheftStatus string

const (
	TheftStatusReported      TheftStatus = "reported"
	TheftStatusInvestigating TheftStatus = "investigating"
	TheftStatusResolved      TheftStatus = "resolved"
	TheftStatusClosed        TheftStatus = "closed"
)

// CanMoveTo reports whether a report in status s may move to next.
func (s TheftStatus) CanMoveTo(next TheftStatus) bool {
	switch s {
	case TheftStatusReported:
		return next == TheftStatusInvestigating || next == TheftStatusResolved || next == TheftStatusClosed
	case TheftStatusInvestigating:
		return next == TheftStatusResolved || next == TheftStatusClosed
	case TheftStatusResolved:
		return next == TheftStatusClosed
	}
	return false
}

type TheftReport struct {
	ID                   uint        `gorm:"primaryKey" json:"id"`
	BorrowingID          uint        `gorm:"index" json:"borrowing_id"`
	VictimBorrowingID    uint        `gorm:"index" json:"victim_borrowing_id"`
	StudentID            *uint       `gorm:"index" json:"student_id,omitempty"`
	StaffID              *uint       `gorm:"index" json:"staff_id,omitempty"`
	VictimStudentID      *uint       `gorm:"index" json:"victim_student_id,omitempty"`
	VictimStaffID        *uint       `gorm:"index" json:"victim_staff_id,omitempty"`
	BookID               uint        `json:"book_id"`
	BookCopyID           *uint       `json:"book_copy_id,omitempty"`
	ExpectedTrackingCode string      `gorm:"size:64" json:"expected_tracking_code"`
	ReturnedTrackingCode string      `gorm:"size:64" json:"returned_tracking_code"`
	TheftReason          string      `gorm:"size:500" json:"theft_reason"`
	ReportedDate         time.Time   `json:"reported_date"`
	Status               TheftStatus `gorm:"index;size:20;default:reported" json:"status"`
	InvestigationNotes   string      `gorm:"type:text" json:"investigation_notes,omitempty"`
	ResolvedDate         *time.Time  `json:"resolved_date,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func (TheftReport) TableName() string {
	return "theft_reports"
}

func (r TheftReport) Reporter() PatronRef {
	return PatronRef{StudentID: r.StudentID, StaffID: r.StaffID}
}

func (r TheftReport) Victim() PatronRef {
	return PatronRef{StudentID: r.VictimStudentID, StaffID: r.VictimStaffID}
}
