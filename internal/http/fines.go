package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/fines"
)

// FineEngine prices, records and settles fines.
type FineEngine interface {
	Amount(ctx context.Context, fineType entities.FineType) (decimal.Decimal, error)
	Create(ctx context.Context, req fines.CreateRequest) (*entities.Fine, bool, error)
	List(ctx context.Context, filter entities.FineFilter, limit, offset int) ([]entities.Fine, int64, error)
	Pay(ctx context.Context, id uint) (*entities.Fine, error)
	Collect(ctx context.Context, id uint) (*entities.Fine, error)
	Clear(ctx context.Context, id uint) (*entities.Fine, error)
	ListSettings(ctx context.Context) ([]fines.SettingView, error)
	UpdateSetting(ctx context.Context, fineType entities.FineType, amount decimal.Decimal, description string) (*entities.FineSetting, error)
}

// SettingsAuditor records configuration changes.
type SettingsAuditor interface {
	LogSettings(actor, action, description string)
}

type FinesController struct {
	engine  FineEngine
	auditor SettingsAuditor
}

func NewFinesController(engine FineEngine, auditor SettingsAuditor) *FinesController {
	return &FinesController{engine: engine, auditor: auditor}
}

type createFineRequest struct {
	StudentID         *uint             `json:"student_id"`
	StaffID           *uint             `json:"staff_id"`
	BorrowingID       *uint             `json:"borrowing_id"`
	FineType          entities.FineType `json:"fine_type" binding:"required"`
	Amount            *decimal.Decimal  `json:"amount"`
	Description       string            `json:"description"`
	PreventDuplicates *bool             `json:"prevent_duplicates"`
}

// CreateFine records a fine by hand. Without an amount the configured amount for the
// type applies. Duplicates are suppressed by default; a suppressed request answers 200
// with the existing fine.
// POST /api/fines
func (fc *FinesController) CreateFine(c *gin.Context) {
	var req createFineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "fine_type is required")
		return
	}
	ctx := c.Request.Context()

	amount := decimal.Zero
	if req.Amount != nil {
		amount = *req.Amount
	} else if req.FineType.Valid() {
		configured, err := fc.engine.Amount(ctx, req.FineType)
		if err != nil {
			respondInternalError(c, err, "fine amount")
			return
		}
		amount = configured
	}

	preventDuplicates := req.BorrowingID != nil
	if req.PreventDuplicates != nil {
		preventDuplicates = *req.PreventDuplicates
	}

	fine, created, err := fc.engine.Create(ctx, fines.CreateRequest{
		Patron:            entities.PatronRef{StudentID: req.StudentID, StaffID: req.StaffID},
		BorrowingID:       req.BorrowingID,
		Amount:            amount,
		FineType:          req.FineType,
		Description:       req.Description,
		CreatedBy:         actor(c),
		PreventDuplicates: preventDuplicates,
	})
	if err != nil {
		respondDomainError(c, err, "create fine")
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"fine": fine, "created": false})
		return
	}
	respondCreated(c, gin.H{"fine": fine, "created": true})
}

// ListFines returns a page of fines
// GET /api/fines?student_id=&staff_id=&borrowing_id=&status=&fine_type=
func (fc *FinesController) ListFines(c *gin.Context) {
	patron, ok := parsePatronQuery(c)
	if !ok {
		return
	}
	borrowingID, ok := parseOptionalQueryID(c, "borrowing_id")
	if !ok {
		return
	}

	filter := entities.FineFilter{
		Patron:      patron,
		BorrowingID: borrowingID,
		Status:      entities.FineStatus(c.Query("status")),
		FineType:    entities.FineType(c.Query("fine_type")),
	}
	if filter.FineType != "" && !filter.FineType.Valid() {
		respondBadRequest(c, "invalid fine_type")
		return
	}

	limit, offset := parsePagination(c)
	list, total, err := fc.engine.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list fines")
		return
	}
	c.JSON(http.StatusOK, newPage(list, total, limit, offset))
}

// PayFine marks a fine as paid by the patron
// POST /api/fines/:id/pay
func (fc *FinesController) PayFine(c *gin.Context) {
	fc.transition(c, "pay", fc.engine.Pay)
}

// CollectFine marks a fine as collected at the desk
// POST /api/fines/:id/collect
func (fc *FinesController) CollectFine(c *gin.Context) {
	fc.transition(c, "collect", fc.engine.Collect)
}

// ClearFine waives a fine
// POST /api/fines/:id/clear
func (fc *FinesController) ClearFine(c *gin.Context) {
	fc.transition(c, "clear", fc.engine.Clear)
}

func (fc *FinesController) transition(c *gin.Context, action string, apply func(context.Context, uint) (*entities.Fine, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	fine, err := apply(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err, action+" fine")
		return
	}
	c.JSON(http.StatusOK, fine)
}

// ListFineSettings returns the effective amount of every fine type
// GET /api/fine-settings
func (fc *FinesController) ListFineSettings(c *gin.Context) {
	settings, err := fc.engine.ListSettings(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list fine settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateFineSetting stores the amount of one fine type. For overdue it is the daily rate.
// PUT /api/fine-settings/:type
func (fc *FinesController) UpdateFineSetting(c *gin.Context) {
	fineType := entities.FineType(c.Param("type"))
	var req struct {
		Amount      *decimal.Decimal `json:"amount" binding:"required"`
		Description string           `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		respondBadRequest(c, "amount is required")
		return
	}

	setting, err := fc.engine.UpdateSetting(c.Request.Context(), fineType, *req.Amount, req.Description)
	if err != nil {
		respondDomainError(c, err, "update fine setting")
		return
	}
	if fc.auditor != nil {
		fc.auditor.LogSettings(actor(c), "fine_setting_update",
			fmt.Sprintf("Set %s fine to %s", fineType, setting.Amount.StringFixed(2)))
	}
	c.JSON(http.StatusOK, setting)
}
