package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// CreateCopies inserts copies in one batch.
func (r *Repository) CreateCopies(copies []entities.BookCopy) error {
	if len(copies) == 0 {
		return nil
	}
	return r.db.CreateInBatches(copies, 100).Error
}

// GetCopyByID retrieves a single copy.
func (r *Repository) GetCopyByID(id uint) (*entities.BookCopy, error) {
	var bookCopy entities.BookCopy
	if err := r.db.First(&bookCopy, id).Error; err != nil {
		return nil, err
	}
	return &bookCopy, nil
}

// GetCopyByTrackingCode retrieves a copy by its tracking code.
func (r *Repository) GetCopyByTrackingCode(code string) (*entities.BookCopy, error) {
	var bookCopy entities.BookCopy
	if err := r.db.Where("tracking_code = ?", code).First(&bookCopy).Error; err != nil {
		return nil, err
	}
	return &bookCopy, nil
}

// GetCopiesByBook returns all copies of a book ordered by copy number.
func (r *Repository) GetCopiesByBook(bookID uint) ([]entities.BookCopy, error) {
	var copies []entities.BookCopy
	err := r.db.Where("book_id = ?", bookID).Order("copy_number ASC").Find(&copies).Error
	return copies, err
}

// FirstAvailableCopy returns the lowest-numbered available copy of a book,
// or gorm.ErrRecordNotFound when none is on the shelf.
func (r *Repository) FirstAvailableCopy(bookID uint) (*entities.BookCopy, error) {
	var bookCopy entities.BookCopy
	err := r.db.Where("book_id = ? AND status = ?", bookID, entities.CopyStatusAvailable).
		Order("copy_number ASC").First(&bookCopy).Error
	if err != nil {
		return nil, err
	}
	return &bookCopy, nil
}

// CountCopiesByStatus returns per-status copy counts for a book.
func (r *Repository) CountCopiesByStatus(bookID uint) (map[entities.CopyStatus]int, error) {
	var rows []struct {
		Status entities.CopyStatus
		Count  int
	}
	err := r.db.Model(&entities.BookCopy{}).
		Select("status, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entities.CopyStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// MaxCopyNumber returns the highest copy number of a book, 0 when it has no copies.
func (r *Repository) MaxCopyNumber(bookID uint) (int, error) {
	var max int
	err := r.db.Model(&entities.BookCopy{}).Where("book_id = ?", bookID).
		Select("COALESCE(MAX(copy_number), 0)").Scan(&max).Error
	return max, err
}

// TrackingCodeExists reports whether any copy already uses code.
func (r *Repository) TrackingCodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.BookCopy{}).Where("tracking_code = ?", code).Count(&count).Error
	return count > 0, err
}

// ClaimCopy moves a copy from available to borrowed in one conditional update.
// It returns false when the copy was not available, which is how concurrent issues
// of the same copy are rejected.
func (r *Repository) ClaimCopy(copyID uint) (bool, error) {
	result := r.db.Model(&entities.BookCopy{}).
		Where("id = ? AND status = ?", copyID, entities.CopyStatusAvailable).
		Update("status", entities.CopyStatusBorrowed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateCopyState sets status and, when non-empty, condition of a copy.
func (r *Repository) UpdateCopyState(copyID uint, status entities.CopyStatus, condition entities.Condition) error {
	updates := map[string]any{"status": status}
	if condition != "" {
		updates["condition"] = condition
	}
	result := r.db.Model(&entities.BookCopy{}).Where("id = ?", copyID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountCopies returns total and available copy counts across the catalog.
func (r *Repository) CountCopies() (total, available int64, err error) {
	if err = r.db.Model(&entities.BookCopy{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&entities.BookCopy{}).Where("status = ?", entities.CopyStatusAvailable).Count(&available).Error
	return total, available, err
}

// IsNotFound reports whether err is gorm's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
