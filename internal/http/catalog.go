package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/inventory"
)

// CatalogStore defines database operations for books, copies and categories.
type CatalogStore interface {
	CreateCategory(category *entities.Category) error
	GetAllCategories() ([]entities.Category, error)
	CreateBook(book *entities.Book) error
	GetBookByID(id uint) (*entities.Book, error)
	GetAllBooks(search string, limit, offset int) ([]entities.Book, int64, error)
	UpdateBook(book *entities.Book) error
	GetCopiesByBook(bookID uint) ([]entities.BookCopy, error)
	GetCopyByTrackingCode(code string) (*entities.BookCopy, error)
}

// CopyLedger creates copies and keeps the book counters in line.
type CopyLedger interface {
	AddCopies(bookID uint, count, year int, condition entities.Condition) ([]entities.BookCopy, error)
}

type CatalogController struct {
	store  CatalogStore
	ledger CopyLedger
}

func NewCatalogController(store CatalogStore, ledger CopyLedger) *CatalogController {
	return &CatalogController{store: store, ledger: ledger}
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// CreateCategory adds a category
// POST /api/categories
func (cc *CatalogController) CreateCategory(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	category := &entities.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := cc.store.CreateCategory(category); err != nil {
		respondInternalError(c, err, "create category")
		return
	}
	respondCreated(c, category)
}

// ListCategories returns all categories
// GET /api/categories
func (cc *CatalogController) ListCategories(c *gin.Context) {
	categories, err := cc.store.GetAllCategories()
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "count": len(categories)})
}

type createBookRequest struct {
	Title           string             `json:"title" binding:"required"`
	Author          string             `json:"author"`
	ISBN            string             `json:"isbn"`
	BookCode        string             `json:"book_code"`
	Publisher       string             `json:"publisher"`
	PublicationYear int                `json:"publication_year"`
	CategoryID      *uint              `json:"category_id"`
	Copies          int                `json:"copies"`
	AcquiredYear    int                `json:"acquired_year"`
	Condition       entities.Condition `json:"condition"`
}

// CreateBook adds a book and, optionally, its first tracked copies
// POST /api/books
func (cc *CatalogController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title is required")
		return
	}
	if req.Copies < 0 || req.Copies > 500 {
		respondBadRequest(c, "copies must be between 0 and 500")
		return
	}
	if req.Condition != "" && (!req.Condition.Valid() || req.Condition == entities.ConditionLost) {
		respondBadRequest(c, "invalid condition")
		return
	}

	isbn := ""
	if strings.TrimSpace(req.ISBN) != "" {
		normalized, err := inventory.NormalizeISBN(req.ISBN)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		isbn = normalized
	}

	book := &entities.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            isbn,
		BookCode:        inventory.NormalizePrefix(req.BookCode),
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		CategoryID:      req.CategoryID,
		Status:          entities.BookStatusUnavailable,
	}
	if err := cc.store.CreateBook(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	copies, err := cc.ledger.AddCopies(book.ID, req.Copies, req.AcquiredYear, req.Condition)
	if err != nil {
		respondInternalError(c, err, "add copies")
		return
	}

	saved, err := cc.store.GetBookByID(book.ID)
	if err != nil {
		respondInternalError(c, err, "reload book")
		return
	}
	saved.Copies = copies
	respondCreated(c, saved)
}

// ListBooks returns a page of books
// GET /api/books?search=&limit=&offset=
func (cc *CatalogController) ListBooks(c *gin.Context) {
	limit, offset := parsePagination(c)
	books, total, err := cc.store.GetAllBooks(strings.TrimSpace(c.Query("search")), limit, offset)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, newPage(books, total, limit, offset))
}

// GetBook returns one book
// GET /api/books/:id
func (cc *CatalogController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := cc.store.GetBookByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

type updateBookRequest struct {
	Title           *string `json:"title"`
	Author          *string `json:"author"`
	ISBN            *string `json:"isbn"`
	BookCode        *string `json:"book_code"`
	Publisher       *string `json:"publisher"`
	PublicationYear *int    `json:"publication_year"`
	CategoryID      *uint   `json:"category_id"`
}

// UpdateBook edits the catalog fields of a book. Omitted fields keep their value;
// copies already issued keep their tracking codes when book_code changes.
// PUT /api/books/:id
func (cc *CatalogController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := cc.store.GetBookByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			respondBadRequest(c, "title must not be empty")
			return
		}
		book.Title = title
	}
	if req.Author != nil {
		book.Author = strings.TrimSpace(*req.Author)
	}
	if req.ISBN != nil {
		book.ISBN = ""
		if strings.TrimSpace(*req.ISBN) != "" {
			normalized, err := inventory.NormalizeISBN(*req.ISBN)
			if err != nil {
				respondBadRequest(c, err.Error())
				return
			}
			book.ISBN = normalized
		}
	}
	if req.BookCode != nil {
		book.BookCode = inventory.NormalizePrefix(*req.BookCode)
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.PublicationYear != nil {
		book.PublicationYear = *req.PublicationYear
	}
	if req.CategoryID != nil {
		book.CategoryID = req.CategoryID
	}

	if err := cc.store.UpdateBook(book); err != nil {
		respondInternalError(c, err, "update book")
		return
	}
	saved, err := cc.store.GetBookByID(id)
	if err != nil {
		respondInternalError(c, err, "reload book")
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ListCopies returns the copies of a book
// GET /api/books/:id/copies
func (cc *CatalogController) ListCopies(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := cc.store.GetBookByID(id); err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	copies, err := cc.store.GetCopiesByBook(id)
	if err != nil {
		respondInternalError(c, err, "list copies")
		return
	}
	c.JSON(http.StatusOK, gin.H{"copies": copies, "count": len(copies)})
}

// AddCopies creates more tracked copies of a book
// POST /api/books/:id/copies
func (cc *CatalogController) AddCopies(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Count        int                `json:"count" binding:"required"`
		AcquiredYear int                `json:"acquired_year"`
		Condition    entities.Condition `json:"condition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Count < 1 || req.Count > 500 {
		respondBadRequest(c, "count must be between 1 and 500")
		return
	}
	if req.Condition != "" && (!req.Condition.Valid() || req.Condition == entities.ConditionLost) {
		respondBadRequest(c, "invalid condition")
		return
	}
	if _, err := cc.store.GetBookByID(id); err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	copies, err := cc.ledger.AddCopies(id, req.Count, req.AcquiredYear, req.Condition)
	if err != nil {
		respondInternalError(c, err, "add copies")
		return
	}
	respondCreated(c, gin.H{"copies": copies, "count": len(copies)})
}

// GetCopy looks a copy up by tracking code. Codes contain slashes, so the route is a
// catch-all and accepts both escaped and plain forms.
// GET /api/copies/*code
func (cc *CatalogController) GetCopy(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(c.Param("code"), "/")))
	if code == "" {
		respondBadRequest(c, "tracking code is required")
		return
	}
	bookCopy, err := cc.store.GetCopyByTrackingCode(code)
	if err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "book copy")
			return
		}
		respondInternalError(c, err, "get copy")
		return
	}
	c.JSON(http.StatusOK, bookCopy)
}
