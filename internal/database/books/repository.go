// Package books provides database operations for the catalog: books, their physical
// copies and categories.
//
// This package implements the inventory.Store interface and the catalog stores used by
// the HTTP controllers.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(123)
package books

import (
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// Repository handles all book, copy and category database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBook inserts a book. Counters are left to the inventory ledger.
func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Create(book).Error
}

// GetBookByID retrieves a book with its category.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Category").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks returns a page of books, optionally filtered by a title/author/ISBN search.
func (r *Repository) GetAllBooks(search string, limit, offset int) ([]entities.Book, int64, error) {
	var books []entities.Book
	var total int64

	query := r.db.Model(&entities.Book{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("title LIKE ? OR author LIKE ? OR isbn LIKE ?", like, like, like)
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

	err := query.Preload("Category").Order("title ASC").Limit(limit).Offset(offset).Find(&books).Error
	return books, total, err
}

// UpdateBook saves the descriptive fields of a book. Counters and status belong to the
// inventory ledger and are not written here.
func (r *Repository) UpdateBook(book *entities.Book) error {
	return r.db.Model(book).
		Select("title", "author", "isbn", "book_code", "publisher", "publication_year", "category_id").
		Updates(book).Error
}

// DeleteBook soft-deletes a book. Its copies and past loans are kept for history.
func (r *Repository) DeleteBook(id uint) error {
	res := r.db.Delete(&entities.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetAllBookIDs lists every book id, used by the repair pass.
func (r *Repository) GetAllBookIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.Book{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// UpdateBookCounters stores the derived counters and status of a book.
func (r *Repository) UpdateBookCounters(bookID uint, total, available int, status entities.BookStatus) error {
	return r.db.Model(&entities.Book{}).Where("id = ?", bookID).Updates(map[string]any{
		"total_copies":     total,
		"available_copies": available,
		"status":           status,
	}).Error
}

// CountBooks returns the number of catalog entries.
func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(category *entities.Category) error {
	return r.db.Create(category).Error
}

// GetAllCategories returns all categories ordered by name.
func (r *Repository) GetAllCategories() ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.Order("name ASC").Find(&categories).Error
	return categories, err
}
