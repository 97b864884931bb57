package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
	"github.com/mrlokans/lendingdesk/internal/lending"
)

// LendingService is the borrowing lifecycle used by the API.
type LendingService interface {
	Issue(ctx context.Context, req lending.IssueRequest) (*entities.Borrowing, error)
	BulkIssue(ctx context.Context, req lending.BulkIssueRequest) ([]entities.Borrowing, error)
	Get(ctx context.Context, id uint) (*entities.Borrowing, error)
	List(ctx context.Context, filter entities.BorrowingFilter, limit, offset int) ([]entities.Borrowing, int64, error)
	Return(ctx context.Context, req lending.ReturnRequest) (*lending.ReturnResult, error)
	HandleFoundLostBook(ctx context.Context, trackingCode string, foundBy entities.PatronRef) (*lending.FoundResult, error)
}

// RecordRetirer removes catalog and patron records that hold no open loans.
type RecordRetirer interface {
	RetireBook(ctx context.Context, id uint, actor string) error
	RemoveStudent(ctx context.Context, id uint, actor string) error
}

type BorrowingsController struct {
	lending LendingService
}

func NewBorrowingsController(service LendingService) *BorrowingsController {
	return &BorrowingsController{lending: service}
}

// parseDate accepts YYYY-MM-DD or RFC 3339. An empty value is the zero time.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errs.Validation(field, "expected YYYY-MM-DD, got %q", raw)
	}
	return t.UTC(), nil
}

type issueRequest struct {
	StudentID        *uint              `json:"student_id"`
	StaffID          *uint              `json:"staff_id"`
	BookID           uint               `json:"book_id"`
	CopyID           *uint              `json:"copy_id"`
	DueDate          string             `json:"due_date"`
	ConditionAtIssue entities.Condition `json:"condition_at_issue"`
}

// Issue lends one book
// POST /api/borrowings
func (bc *BorrowingsController) Issue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		respondDomainError(c, err, "issue")
		return
	}

	loan, err := bc.lending.Issue(c.Request.Context(), lending.IssueRequest{
		Patron:           entities.PatronRef{StudentID: req.StudentID, StaffID: req.StaffID},
		BookID:           req.BookID,
		CopyID:           req.CopyID,
		DueDate:          due,
		ConditionAtIssue: req.ConditionAtIssue,
		IssuedBy:         actor(c),
	})
	if err != nil {
		respondDomainError(c, err, "issue")
		return
	}
	respondCreated(c, loan)
}

type bulkIssueRequest struct {
	StudentID *uint `json:"student_id"`
	StaffID   *uint `json:"staff_id"`
	Items     []struct {
		BookID uint  `json:"book_id"`
		CopyID *uint `json:"copy_id"`
	} `json:"items"`
	DueDate          string             `json:"due_date"`
	ConditionAtIssue entities.Condition `json:"condition_at_issue"`
}

// BulkIssue lends several books to one patron. When an item fails after others were
// issued, the issued loans are returned with 207 and the error.
// POST /api/borrowings/bulk
func (bc *BorrowingsController) BulkIssue(c *gin.Context) {
	var req bulkIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		respondDomainError(c, err, "bulk issue")
		return
	}

	items := make([]lending.BulkItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, lending.BulkItem{BookID: item.BookID, CopyID: item.CopyID})
	}

	loans, err := bc.lending.BulkIssue(c.Request.Context(), lending.BulkIssueRequest{
		Patron:           entities.PatronRef{StudentID: req.StudentID, StaffID: req.StaffID},
		Items:            items,
		DueDate:          due,
		ConditionAtIssue: req.ConditionAtIssue,
		IssuedBy:         actor(c),
	})
	if err != nil {
		if len(loans) > 0 {
			c.JSON(http.StatusMultiStatus, gin.H{
				"borrowings": loans,
				"count":      len(loans),
				"error":      err.Error(),
				"code":       errs.Code(err),
			})
			return
		}
		respondDomainError(c, err, "bulk issue")
		return
	}
	respondCreated(c, gin.H{"borrowings": loans, "count": len(loans)})
}

// ListBorrowings returns a page of borrowings
// GET /api/borrowings?status=active|returned|overdue|lost&student_id=&staff_id=&book_id=
func (bc *BorrowingsController) ListBorrowings(c *gin.Context) {
	patron, ok := parsePatronQuery(c)
	if !ok {
		return
	}
	bookID, ok := parseOptionalQueryID(c, "book_id")
	if !ok {
		return
	}

	status := entities.BorrowingStatus(c.Query("status"))
	switch status {
	case "", entities.BorrowingStatusActive, entities.BorrowingStatusReturned,
		entities.BorrowingStatusOverdue, entities.BorrowingStatusLost:
	default:
		respondBadRequest(c, "invalid status")
		return
	}

	filter := entities.BorrowingFilter{Status: status, Patron: patron}
	if bookID != nil {
		filter.BookID = *bookID
	}

	limit, offset := parsePagination(c)
	loans, total, err := bc.lending.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list borrowings")
		return
	}
	c.JSON(http.StatusOK, newPage(loans, total, limit, offset))
}

// GetBorrowing returns one borrowing
// GET /api/borrowings/:id
func (bc *BorrowingsController) GetBorrowing(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	loan, err := bc.lending.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, "get borrowing")
		return
	}
	c.JSON(http.StatusOK, loan)
}

type returnRequest struct {
	ConditionAtReturn    entities.Condition `json:"condition_at_return"`
	IsLost               bool               `json:"is_lost"`
	ReturnedTrackingCode string             `json:"returned_tracking_code"`
	PreventAutoFine      bool               `json:"prevent_auto_fine"`
	FineAmount           *decimal.Decimal   `json:"fine_amount"`
	Notes                string             `json:"notes"`
}

// Return closes a loan. A tracking code belonging to another patron's loan files a
// theft report instead, answered with 409.
// POST /api/borrowings/:id/return
func (bc *BorrowingsController) Return(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := bc.lending.Return(c.Request.Context(), lending.ReturnRequest{
		BorrowingID:          id,
		ConditionAtReturn:    req.ConditionAtReturn,
		IsLost:               req.IsLost,
		ReturnedTrackingCode: req.ReturnedTrackingCode,
		PreventAutoFine:      req.PreventAutoFine,
		FineAmount:           req.FineAmount,
		ReturnedBy:           actor(c),
		Notes:                req.Notes,
	})
	if err != nil {
		respondDomainError(c, err, "return")
		return
	}
	if result.TheftReport != nil {
		c.JSON(http.StatusConflict, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FoundLostBook restores a copy that was reported lost
// POST /api/borrowings/found
func (bc *BorrowingsController) FoundLostBook(c *gin.Context) {
	var req struct {
		TrackingCode string `json:"tracking_code"`
		StudentID    *uint  `json:"found_by_student_id"`
		StaffID      *uint  `json:"found_by_staff_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := bc.lending.HandleFoundLostBook(c.Request.Context(), req.TrackingCode,
		entities.PatronRef{StudentID: req.StudentID, StaffID: req.StaffID})
	if err != nil {
		respondDomainError(c, err, "found lost book")
		return
	}
	c.JSON(http.StatusOK, result)
}
