package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/reports"
	"github.com/mrlokans/lendingdesk/internal/storage"
)

// ReportService aggregates dashboard figures.
type ReportService interface {
	Summary(ctx context.Context) (*reports.Summary, error)
	BorrowingCounts(ctx context.Context) (entities.BorrowingCounts, error)
	FineTotalsByPatron(ctx context.Context) ([]reports.PatronFineTotal, error)
	FineTotalsByClass(ctx context.Context) ([]reports.ClassFineTotal, error)
}

// ArchiveBrowser finds archived report snapshots.
type ArchiveBrowser interface {
	Latest(ctx context.Context) (*storage.FileInfo, error)
}

type ReportsController struct {
	reports ReportService
	archive ArchiveBrowser
}

// NewReportsController creates the reports controller. archive may be nil.
func NewReportsController(service ReportService, archive ArchiveBrowser) *ReportsController {
	return &ReportsController{reports: service, archive: archive}
}

// Summary returns the dashboard snapshot
// GET /api/reports/summary
func (rc *ReportsController) Summary(c *gin.Context) {
	summary, err := rc.reports.Summary(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "report summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Borrowings returns loan counts by state
// GET /api/reports/borrowings
func (rc *ReportsController) Borrowings(c *gin.Context) {
	counts, err := rc.reports.BorrowingCounts(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "borrowing counts")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// Fines returns fine totals grouped by patron (default) or class
// GET /api/reports/fines?group=patron|class
func (rc *ReportsController) Fines(c *gin.Context) {
	ctx := c.Request.Context()
	switch group := c.DefaultQuery("group", "patron"); group {
	case "patron":
		totals, err := rc.reports.FineTotalsByPatron(ctx)
		if err != nil {
			respondInternalError(c, err, "fines by patron")
			return
		}
		c.JSON(http.StatusOK, gin.H{"group": group, "totals": totals})
	case "class":
		totals, err := rc.reports.FineTotalsByClass(ctx)
		if err != nil {
			respondInternalError(c, err, "fines by class")
			return
		}
		c.JSON(http.StatusOK, gin.H{"group": group, "totals": totals})
	default:
		respondBadRequest(c, "group must be patron or class")
	}
}

// LatestArchive returns the key of the newest archived summary
// GET /api/reports/archive/latest
func (rc *ReportsController) LatestArchive(c *gin.Context) {
	if rc.archive == nil {
		respondNotFound(c, "report archive")
		return
	}
	latest, err := rc.archive.Latest(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "latest archived report")
		return
	}
	if latest == nil {
		respondNotFound(c, "archived report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": latest.Key, "size": latest.Size, "modified_at": latest.ModifiedAt})
}
