package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// AuditReader returns recorded audit events.
type AuditReader interface {
	GetEvents(eventType entities.AuditEventType, entityType string, entityID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	auditService AuditReader
}

func NewAuditController(auditService AuditReader) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=&entity_type=&entity_id=&page=&limit=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	entityID, ok := parseOptionalQueryID(c, "entity_id")
	if !ok {
		return
	}
	var id uint
	if entityID != nil {
		id = *entityID
	}

	eventType := entities.AuditEventType(c.Query("type"))
	offset := (page - 1) * limit

	events, total, err := ac.auditService.GetEvents(eventType, c.Query("entity_type"), id, limit, offset)
	if err != nil {
		respondInternalError(c, err, "audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}
