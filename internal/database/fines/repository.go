// Package fines provides database operations for fines and fine settings.
//
// # Usage
//
//	repo := fines.NewRepository(db)
//	fine, created, err := repo.CreateFineIfAbsent(&entities.Fine{...})
package fines

import (
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// Repository handles all fine database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new fines repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateFine inserts a fine unconditionally.
func (r *Repository) CreateFine(fine *entities.Fine) error {
	return r.db.Create(fine).Error
}

// CreateFineIfAbsent inserts fine unless a fine with the same borrowing and type was
// already created this way, in which case the existing row is returned with
// created=false. The unique dedup key makes concurrent callers agree on one row.
func (r *Repository) CreateFineIfAbsent(fine *entities.Fine) (*entities.Fine, bool, error) {
	if fine.BorrowingID == nil {
		return fine, true, r.db.Create(fine).Error
	}

	key := DedupKey(*fine.BorrowingID, fine.FineType)
	fine.DedupKey = &key

	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(fine)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return fine, true, nil
	}

	var existing entities.Fine
	if err := r.db.Where("dedup_key = ?", key).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// DedupKey identifies the single fine of a type a borrowing may carry.
func DedupKey(borrowingID uint, fineType entities.FineType) string {
	return strconv.FormatUint(uint64(borrowingID), 10) + ":" + string(fineType)
}

// GetFineByID retrieves a fine.
func (r *Repository) GetFineByID(id uint) (*entities.Fine, error) {
	var fine entities.Fine
	if err := r.db.First(&fine, id).Error; err != nil {
		return nil, err
	}
	return &fine, nil
}

// CountFines counts rows for a borrowing and type.
func (r *Repository) CountFines(borrowingID uint, fineType entities.FineType) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Fine{}).
		Where("borrowing_id = ? AND fine_type = ?", borrowingID, fineType).
		Count(&count).Error
	return count, err
}

// UpdateFineStatus moves a fine to status, stamping paid_at when paidAt is set.
func (r *Repository) UpdateFineStatus(id uint, status entities.FineStatus, paidAt *time.Time) error {
	updates := map[string]any{"status": status}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := r.db.Model(&entities.Fine{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearFines marks the unpaid fines of a borrowing with the given type as cleared.
// Returns the number of fines cleared.
func (r *Repository) ClearFines(borrowingID uint, fineType entities.FineType) (int64, error) {
	result := r.db.Model(&entities.Fine{}).
		Where("borrowing_id = ? AND fine_type = ? AND status = ?", borrowingID, fineType, entities.FineStatusUnpaid).
		Update("status", entities.FineStatusCleared)
	return result.RowsAffected, result.Error
}

// ListFines returns a page of fines matching filter, newest first.
func (r *Repository) ListFines(filter entities.FineFilter, limit, offset int) ([]entities.Fine, int64, error) {
	var fines []entities.Fine
	var total int64

	query := r.db.Model(&entities.Fine{})
	if filter.Patron.StudentID != nil {
		query = query.Where("student_id = ?", *filter.Patron.StudentID)
	}
	if filter.Patron.StaffID != nil {
		query = query.Where("staff_id = ?", *filter.Patron.StaffID)
	}
	if filter.BorrowingID != nil {
		query = query.Where("borrowing_id = ?", *filter.BorrowingID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.FineType != "" {
		query = query.Where("fine_type = ?", filter.FineType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&fines).Error
	return fines, total, err
}

// TotalsByPatron sums fines per patron and status.
func (r *Repository) TotalsByPatron() ([]entities.FineTotal, error) {
	var rows []entities.FineTotal
	err := r.db.Model(&entities.Fine{}).
		Select("student_id, staff_id, status, COUNT(*) AS count, SUM(amount) AS amount").
		Group("student_id, staff_id, status").
		Order("student_id, staff_id, status").
		Scan(&rows).Error
	return rows, err
}

// TotalsByClass sums student fines per class and status.
func (r *Repository) TotalsByClass() ([]entities.FineTotal, error) {
	var rows []entities.FineTotal
	err := r.db.Model(&entities.Fine{}).
		Select("students.class_id AS class_id, fines.status AS status, COUNT(*) AS count, SUM(fines.amount) AS amount").
		Joins("JOIN students ON students.id = fines.student_id").
		Group("students.class_id, fines.status").
		Order("students.class_id, fines.status").
		Scan(&rows).Error
	return rows, err
}

// GetFineSetting returns the configured amount for a fine type.
func (r *Repository) GetFineSetting(fineType entities.FineType) (*entities.FineSetting, error) {
	var setting entities.FineSetting
	if err := r.db.Where("fine_type = ?", fineType).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetAllFineSettings returns every configured fine setting.
func (r *Repository) GetAllFineSettings() ([]entities.FineSetting, error) {
	var settings []entities.FineSetting
	err := r.db.Order("fine_type ASC").Find(&settings).Error
	return settings, err
}

// UpsertFineSetting creates or replaces the amount and description for a fine type.
func (r *Repository) UpsertFineSetting(setting *entities.FineSetting) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fine_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "description", "updated_at"}),
	}).Create(setting).Error
}
