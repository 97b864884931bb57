package entities

import (
	"time"

	"gorm.io/gorm"
)

type BookStatus string

const (
	BookStatusAvailable   BookStatus = "available"
	BookStatusUnavailable BookStatus = "unavailable"
	BookStatusDamaged     BookStatus = "damaged"
	BookStatusLost        BookStatus = "lost"
)

type CopyStatus string

const (
	CopyStatusAvailable   CopyStatus = "available"
	CopyStatusBorrowed    CopyStatus = "borrowed"
	CopyStatusLost        CopyStatus = "lost"
	CopyStatusMaintenance CopyStatus = "maintenance"
)

// Condition describes the physical state of a copy, at issue, at return or on the shelf.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
	ConditionDamaged   Condition = "damaged"
	ConditionLost      Condition = "lost"
)

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor, ConditionDamaged, ConditionLost:
		return true
	}
	return false
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"index;size:512" json:"title"`
	Author          string         `gorm:"index;size:256" json:"author"`
	ISBN            string         `gorm:"index;size:20" json:"isbn,omitempty"`
	BookCode        string         `gorm:"index;size:20" json:"book_code"`
	Publisher       string         `gorm:"size:256" json:"publisher,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	CategoryID      *uint          `gorm:"index" json:"category_id,omitempty"`
	Category        *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	TotalCopies     int            `gorm:"not null;default:0" json:"total_copies"`
	AvailableCopies int            `gorm:"not null;default:0" json:"available_copies"`
	Status          BookStatus     `gorm:"size:20;default:available" json:"status"`
	Copies          []BookCopy     `gorm:"foreignKey:BookID" json:"copies,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

type BookCopy struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	BookID       uint       `gorm:"index;not null" json:"book_id"`
	CopyNumber   int        `gorm:"not null" json:"copy_number"`
	TrackingCode string     `gorm:"uniqueIndex;size:64" json:"tracking_code"`
	Condition    Condition  `gorm:"size:20;default:good" json:"condition"`
	Status       CopyStatus `gorm:"index;size:20;default:available" json:"status"`
	AcquiredYear int        `json:"acquired_year"`
	Notes        string     `gorm:"size:500" json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (BookCopy) TableName() string {
	return "book_copies"
}
