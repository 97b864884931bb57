package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/mismatch"
)

// MismatchDetector classifies a scanned tracking code.
type MismatchDetector interface {
	Detect(ctx context.Context, returnedCode string, expectedCodes []string, patron entities.PatronRef) (mismatch.Result, error)
}

// TheftReports lists and moves theft reports through their workflow.
type TheftReports interface {
	ListTheftReports(ctx context.Context, status entities.TheftStatus, limit, offset int) ([]entities.TheftReport, int64, error)
	UpdateTheftReport(ctx context.Context, id uint, status entities.TheftStatus, notes, actor string) (*entities.TheftReport, error)
}

type TheftController struct {
	detector MismatchDetector
	reports  TheftReports
}

func NewTheftController(detector MismatchDetector, reports TheftReports) *TheftController {
	return &TheftController{detector: detector, reports: reports}
}

// Detect checks a scanned code against the codes the patron is expected to return.
// Repeated scans of the same code within the debounce window come back throttled.
// POST /api/theft/detect
func (tc *TheftController) Detect(c *gin.Context) {
	var req struct {
		ReturnedTrackingCode string   `json:"returned_tracking_code"`
		ExpectedCodes        []string `json:"expected_codes"`
		StudentID            *uint    `json:"student_id"`
		StaffID              *uint    `json:"staff_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	result, err := tc.detector.Detect(c.Request.Context(), req.ReturnedTrackingCode, req.ExpectedCodes,
		entities.PatronRef{StudentID: req.StudentID, StaffID: req.StaffID})
	if err != nil {
		respondDomainError(c, err, "detect mismatch")
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListReports returns a page of theft reports
// GET /api/theft/reports?status=
func (tc *TheftController) ListReports(c *gin.Context) {
	limit, offset := parsePagination(c)
	reports, total, err := tc.reports.ListTheftReports(c.Request.Context(), entities.TheftStatus(c.Query("status")), limit, offset)
	if err != nil {
		respondInternalError(c, err, "list theft reports")
		return
	}
	c.JSON(http.StatusOK, newPage(reports, total, limit, offset))
}

// UpdateReport moves a report to a new status and appends investigation notes
// PATCH /api/theft/reports/:id
func (tc *TheftController) UpdateReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status entities.TheftStatus `json:"status"`
		Notes  string               `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	report, err := tc.reports.UpdateTheftReport(c.Request.Context(), id, req.Status, req.Notes, actor(c))
	if err != nil {
		respondDomainError(c, err, "update theft report")
		return
	}
	c.JSON(http.StatusOK, report)
}
