// Package theft provides database operations for tracking-code mismatch reports.
//
// # Usage
//
//	repo := theft.NewRepository(db)
//	reports, total, err := repo.ListReports(entities.TheftStatusReported, 20, 0)
package theft

import (
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

var openStatuses = []entities.TheftStatus{entities.TheftStatusReported, entities.TheftStatusInvestigating}

// Repository handles all theft report database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new theft report repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateReport inserts a theft report.
func (r *Repository) CreateReport(report *entities.TheftReport) error {
	return r.db.Create(report).Error
}

// GetReportByID retrieves a theft report.
func (r *Repository) GetReportByID(id uint) (*entities.TheftReport, error) {
	var report entities.TheftReport
	if err := r.db.First(&report, id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// FindOpenReport returns the unresolved report raised when a loan was returned with
// the given code.
func (r *Repository) FindOpenReport(borrowingID uint, returnedCode string) (*entities.TheftReport, error) {
	var report entities.TheftReport
	err := r.db.Where("borrowing_id = ? AND returned_tracking_code = ? AND status IN ?", borrowingID, returnedCode, openStatuses).
		Order("id DESC").
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveReport persists every field of an existing report.
func (r *Repository) SaveReport(report *entities.TheftReport) error {
	return r.db.Save(report).Error
}

// ListReports returns a page of reports, optionally filtered by status, newest first.
func (r *Repository) ListReports(status entities.TheftStatus, limit, offset int) ([]entities.TheftReport, int64, error) {
	var reports []entities.TheftReport
	var total int64

	query := r.db.Model(&entities.TheftReport{})
	if status != "" {
		query = query.Where("status = ?", status)
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

	err := query.Order("reported_date DESC, id DESC").Limit(limit).Offset(offset).Find(&reports).Error
	return reports, total, err
}

// CountOpenReports returns reports not yet resolved or closed.
func (r *Repository) CountOpenReports() (int64, error) {
	var count int64
	err := r.db.Model(&entities.TheftReport{}).
		Where("status IN ?", openStatuses).
		Count(&count).Error
	return count, err
}
