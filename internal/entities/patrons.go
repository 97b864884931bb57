package entities

import (
	"time"

	"gorm.io/gorm"
)

type BorrowerType string

const (
	BorrowerStudent BorrowerType = "student"
	BorrowerStaff   BorrowerType = "staff"
)

type Class struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ClassName       string    `gorm:"uniqueIndex;size:100" json:"class_name"`
	FormLevel       int       `json:"form_level"`
	ClassSection    string    `gorm:"size:20" json:"class_section,omitempty"`
	MaxBooksAllowed int       `gorm:"not null;default:0" json:"max_books_allowed"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Class) TableName() string {
	return "classes"
}

type Student struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AdmissionNumber string    `gorm:"uniqueIndex;size:50" json:"admission_number"`
	FirstName       string    `gorm:"size:100" json:"first_name"`
	LastName        string    `gorm:"size:100" json:"last_name"`
	Email           string    `gorm:"size:255" json:"email,omitempty"`
	ClassID         *uint     `gorm:"index" json:"class_id,omitempty"`
	Class           *Class    `gorm:"foreignKey:ClassID" json:"class,omitempty"`
	Status          string         `gorm:"size:20;default:active" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// StudentFilter narrows a student listing. Search matches names and admission numbers.
type StudentFilter struct {
	ClassID *uint
	Status  string
	Search  string
}

func (Student) TableName() string {
	return "students"
}

func (s Student) FullName() string {
	return joinName(s.FirstName, s.LastName)
}

type Staff struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StaffNumber     string    `gorm:"uniqueIndex;size:50" json:"staff_number"`
	FirstName       string    `gorm:"size:100" json:"first_name"`
	LastName        string    `gorm:"size:100" json:"last_name"`
	Email           string    `gorm:"size:255" json:"email,omitempty"`
	Department      string    `gorm:"size:100" json:"department,omitempty"`
	Position        string    `gorm:"size:100" json:"position,omitempty"`
	MaxBooksAllowed int       `gorm:"not null;default:0" json:"max_books_allowed"` // 0 means library default
	Status          string    `gorm:"size:20;default:active" json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s Staff) FullName() string {
	return joinName(s.FirstName, s.LastName)
}

// PatronRef identifies a borrower. Exactly one of StudentID and StaffID must be set.
type PatronRef struct {
	StudentID *uint `json:"student_id,omitempty"`
	StaffID   *uint `json:"staff_id,omitempty"`
}

func StudentRef(id uint) PatronRef { return PatronRef{StudentID: &id} }
func StaffRef(id uint) PatronRef   { return PatronRef{StaffID: &id} }

// Valid reports whether exactly one side of the reference is set.
func (p PatronRef) Valid() bool {
	return (p.StudentID != nil) != (p.StaffID != nil)
}

func (p PatronRef) IsZero() bool {
	return p.StudentID == nil && p.StaffID == nil
}

func (p PatronRef) Type() BorrowerType {
	if p.StaffID != nil {
		return BorrowerStaff
	}
	return BorrowerStudent
}

func (p PatronRef) Equal(other PatronRef) bool {
	return equalID(p.StudentID, other.StudentID) && equalID(p.StaffID, other.StaffID)
}

func (p PatronRef) String() string {
	switch {
	case p.StudentID != nil:
		return "student:" + itoa(*p.StudentID)
	case p.StaffID != nil:
		return "staff:" + itoa(*p.StaffID)
	}
	return "none"
}

func equalID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
