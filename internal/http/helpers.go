package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/errs"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (limits, field names)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func newPage(data any, total int64, limit, offset int) PaginatedResponse {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+limit) < total,
		TotalPages: pages,
	}
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: errs.CodeValidation})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: errs.CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	zap.L().Error("internal error",
		zap.String("context", context),
		zap.String("request_id", c.GetString(ContextKeyRequestID)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondDomainError maps the lending error kinds to status codes. Anything
// unclassified is a 500.
func respondDomainError(c *gin.Context, err error, context string) {
	if limit, ok := errs.AsLimit(err); ok {
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: errs.CodeLimitExceeded, Details: limit})
		return
	}

	var validation *errs.ValidationError
	switch {
	case errors.As(err, &validation):
		var details any
		if validation.Field != "" {
			details = gin.H{"field": validation.Field}
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: errs.CodeValidation, Details: details})
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: errs.CodeNotFound})
	case errs.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: errs.CodeConflict})
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message, Data: data})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseOptionalQueryID reads an unsigned id from the query string. An absent
// parameter yields nil.
func parseOptionalQueryID(c *gin.Context, paramName string) (*uint, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// parsePagination reads limit/offset with a default page of 50 and a cap of 200.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parsePatronQuery reads the student_id / staff_id query pair. Both absent is a zero
// reference; both present is rejected.
func parsePatronQuery(c *gin.Context) (entities.PatronRef, bool) {
	studentID, ok := parseOptionalQueryID(c, "student_id")
	if !ok {
		return entities.PatronRef{}, false
	}
	staffID, ok := parseOptionalQueryID(c, "staff_id")
	if !ok {
		return entities.PatronRef{}, false
	}
	patron := entities.PatronRef{StudentID: studentID, StaffID: staffID}
	if !patron.IsZero() && !patron.Valid() {
		respondBadRequest(c, "only one of student_id and staff_id is allowed")
		return entities.PatronRef{}, false
	}
	return patron, true
}

// actor names the librarian performing a request, from the X-Actor header.
func actor(c *gin.Context) string {
	if name := strings.TrimSpace(c.GetHeader(HeaderActor)); name != "" {
		return name
	}
	return "api"
}
