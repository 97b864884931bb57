// Package borrowings provides database operations for loans.
//
// Overdue is never stored: queries derive it from due_date and the caller's notion of today.
//
// # Usage
//
//	repo := borrowings.NewRepository(db)
//	active, err := repo.CountOpenByPatron(entities.StudentRef(7))
package borrowings

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

var openStatuses = []entities.BorrowingStatus{entities.BorrowingStatusActive, entities.BorrowingStatusOverdue}

// Repository handles all borrowing database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new borrowings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBorrowing inserts a loan.
func (r *Repository) CreateBorrowing(borrowing *entities.Borrowing) error {
	return r.db.Omit(clause.Associations).Create(borrowing).Error
}

// SaveBorrowing persists every field of an existing loan. The preloaded book is not written.
func (r *Repository) SaveBorrowing(borrowing *entities.Borrowing) error {
	return r.db.Omit(clause.Associations).Save(borrowing).Error
}

// GetBorrowingByID retrieves a loan with its book.
func (r *Repository) GetBorrowingByID(id uint) (*entities.Borrowing, error) {
	var borrowing entities.Borrowing
	if err := r.db.Preload("Book").First(&borrowing, id).Error; err != nil {
		return nil, err
	}
	return &borrowing, nil
}

// CountOpenByPatron counts loans that still occupy a borrowing slot, lost ones included.
func (r *Repository) CountOpenByPatron(patron entities.PatronRef) (int64, error) {
	var count int64
	err := byPatron(r.db.Model(&entities.Borrowing{}), patron).
		Where("status IN ?", openStatuses).
		Count(&count).Error
	return count, err
}

// CountOpenByBook counts the open loans of a book, lost copies included.
func (r *Repository) CountOpenByBook(bookID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Borrowing{}).
		Where("book_id = ? AND status IN ?", bookID, openStatuses).
		Count(&count).Error
	return count, err
}

// GetOpenByPatron returns the patron's open loans, oldest first.
func (r *Repository) GetOpenByPatron(patron entities.PatronRef) ([]entities.Borrowing, error) {
	var loans []entities.Borrowing
	err := byPatron(r.db, patron).
		Where("status IN ?", openStatuses).
		Order("borrowed_date ASC, id ASC").
		Find(&loans).Error
	return loans, err
}

// GetOpenByTrackingCode returns the open, not-lost loan holding the copy with code.
func (r *Repository) GetOpenByTrackingCode(code string) (*entities.Borrowing, error) {
	var borrowing entities.Borrowing
	err := r.db.Where("tracking_code = ? AND is_lost = ? AND status IN ?", code, false, openStatuses).
		Order("id DESC").First(&borrowing).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

// GetLatestLostByCopy returns the most recent loan that reported copyID lost.
func (r *Repository) GetLatestLostByCopy(copyID uint) (*entities.Borrowing, error) {
	var borrowing entities.Borrowing
	err := r.db.Where("book_copy_id = ? AND is_lost = ?", copyID, true).
		Order("id DESC").First(&borrowing).Error
	if err != nil {
		return nil, err
	}
	return &borrowing, nil
}

// GetOpenCopyIDs returns the ids of copies currently out on an open, not-lost loan.
func (r *Repository) GetOpenCopyIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.Borrowing{}).
		Where("book_copy_id IS NOT NULL AND is_lost = ? AND status IN ?", false, openStatuses).
		Distinct().Pluck("book_copy_id", &ids).Error
	return ids, err
}

// GetOpenWithoutCopy returns open loans of a book issued against the cached counter.
func (r *Repository) GetOpenWithoutCopy(bookID uint) ([]entities.Borrowing, error) {
	var loans []entities.Borrowing
	err := r.db.Where("book_id = ? AND book_copy_id IS NULL AND status IN ?", bookID, openStatuses).
		Order("borrowed_date ASC, id ASC").
		Find(&loans).Error
	return loans, err
}

// AttachCopy records the copy a counter-only loan is holding.
func (r *Repository) AttachCopy(borrowingID, copyID uint, trackingCode string) error {
	result := r.db.Model(&entities.Borrowing{}).
		Where("id = ? AND book_copy_id IS NULL", borrowingID).
		Updates(map[string]any{"book_copy_id": copyID, "tracking_code": trackingCode})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListBorrowings returns a page of loans matching filter, newest first.
func (r *Repository) ListBorrowings(filter entities.BorrowingFilter, limit, offset int) ([]entities.Borrowing, int64, error) {
	var loans []entities.Borrowing
	var total int64

	query := applyFilter(r.db.Model(&entities.Borrowing{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Preload("Book").Order("borrowed_date DESC, id DESC").Limit(limit).Offset(offset).Find(&loans).Error
	return loans, total, err
}

// GetOverdue returns open, not-lost loans whose due date is before today.
func (r *Repository) GetOverdue(today time.Time, limit int) ([]entities.Borrowing, error) {
	var loans []entities.Borrowing
	query := overdue(r.db, today).Preload("Book").Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&loans).Error
	return loans, err
}

// CountByState returns the dashboard breakdown of loans.
func (r *Repository) CountByState(today time.Time) (entities.BorrowingCounts, error) {
	var counts entities.BorrowingCounts
	model := func() *gorm.DB { return r.db.Model(&entities.Borrowing{}) }

	if err := model().Where("status IN ? AND is_lost = ?", openStatuses, false).Count(&counts.Active).Error; err != nil {
		return counts, err
	}
	if err := overdue(model(), today).Count(&counts.Overdue).Error; err != nil {
		return counts, err
	}
	if err := model().Where("status = ?", entities.BorrowingStatusReturned).Count(&counts.Returned).Error; err != nil {
		return counts, err
	}
	err := model().Where("is_lost = ? OR status = ?", true, entities.BorrowingStatusLost).Count(&counts.Lost).Error
	return counts, err
}

func applyFilter(query *gorm.DB, filter entities.BorrowingFilter) *gorm.DB {
	if !filter.Patron.IsZero() {
		query = byPatron(query, filter.Patron)
	}
	if filter.BookID > 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}

	switch filter.Status {
	case "":
	case entities.BorrowingStatusOverdue:
		query = overdue(query, filter.Today)
	case entities.BorrowingStatusLost:
		query = query.Where("is_lost = ? OR status = ?", true, entities.BorrowingStatusLost)
	case entities.BorrowingStatusActive:
		query = query.Where("status IN ? AND is_lost = ?", openStatuses, false)
	default:
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

func overdue(query *gorm.DB, today time.Time) *gorm.DB {
	return query.Where("status IN ? AND is_lost = ? AND due_date < ?", openStatuses, false, today)
}

func byPatron(query *gorm.DB, patron entities.PatronRef) *gorm.DB {
	if patron.StudentID != nil {
		return query.Where("student_id = ?", *patron.StudentID)
	}
	if patron.StaffID != nil {
		return query.Where("staff_id = ?", *patron.StaffID)
	}
	return query
}
