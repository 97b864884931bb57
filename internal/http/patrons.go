package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// PatronStore defines database operations for classes, students and staff.
type PatronStore interface {
	CreateClass(class *entities.Class) error
	GetClassByID(id uint) (*entities.Class, error)
	GetAllClasses() ([]entities.Class, error)
	CreateStudent(student *entities.Student) error
	GetStudentByID(id uint) (*entities.Student, error)
	ListStudents(filter entities.StudentFilter, limit, offset int) ([]entities.Student, int64, error)
	UpdateStudent(student *entities.Student) error
	CreateStaff(staff *entities.Staff) error
	GetStaffByID(id uint) (*entities.Staff, error)
}

// LoanLister returns the loans a patron holds.
type LoanLister interface {
	OpenLoans(ctx context.Context, patron entities.PatronRef) ([]entities.Borrowing, error)
}

type PatronsController struct {
	store PatronStore
	loans LoanLister
}

func NewPatronsController(store PatronStore, loans LoanLister) *PatronsController {
	return &PatronsController{store: store, loans: loans}
}

// CreateClass adds a class. max_books_allowed 0 means the library default applies.
// POST /api/classes
func (pc *PatronsController) CreateClass(c *gin.Context) {
	var req struct {
		ClassName       string `json:"class_name" binding:"required"`
		FormLevel       int    `json:"form_level"`
		ClassSection    string `json:"class_section"`
		MaxBooksAllowed int    `json:"max_books_allowed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "class_name is required")
		return
	}
	if req.MaxBooksAllowed < 0 {
		respondBadRequest(c, "max_books_allowed must not be negative")
		return
	}

	class := &entities.Class{
		ClassName:       strings.TrimSpace(req.ClassName),
		FormLevel:       req.FormLevel,
		ClassSection:    req.ClassSection,
		MaxBooksAllowed: req.MaxBooksAllowed,
		IsActive:        true,
	}
	if err := pc.store.CreateClass(class); err != nil {
		respondInternalError(c, err, "create class")
		return
	}
	respondCreated(c, class)
}

// ListClasses returns all classes
// GET /api/classes
func (pc *PatronsController) ListClasses(c *gin.Context) {
	classes, err := pc.store.GetAllClasses()
	if err != nil {
		respondInternalError(c, err, "list classes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes, "count": len(classes)})
}

// CreateStudent registers a student
// POST /api/students
func (pc *PatronsController) CreateStudent(c *gin.Context) {
	var req struct {
		AdmissionNumber string `json:"admission_number" binding:"required"`
		FirstName       string `json:"first_name" binding:"required"`
		LastName        string `json:"last_name"`
		Email           string `json:"email"`
		ClassID         *uint  `json:"class_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "admission_number and first_name are required")
		return
	}
	if req.ClassID != nil {
		if _, err := pc.store.GetClassByID(*req.ClassID); err != nil {
			if isRecordNotFound(err) {
				respondBadRequest(c, "class_id does not exist")
				return
			}
			respondInternalError(c, err, "get class")
			return
		}
	}

	student := &entities.Student{
		AdmissionNumber: strings.TrimSpace(req.AdmissionNumber),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Email:           req.Email,
		ClassID:         req.ClassID,
		Status:          "active",
	}
	if err := pc.store.CreateStudent(student); err != nil {
		respondInternalError(c, err, "create student")
		return
	}
	respondCreated(c, student)
}

var studentStatuses = map[string]bool{"active": true, "inactive": true, "suspended": true, "graduated": true}

// ListStudents returns a page of students
// GET /api/students?class_id=&status=&search=&limit=&offset=
func (pc *PatronsController) ListStudents(c *gin.Context) {
	filter := entities.StudentFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("class_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid class_id")
			return
		}
		classID := uint(id)
		filter.ClassID = &classID
	}

	limit, offset := parsePagination(c)
	students, total, err := pc.store.ListStudents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list students")
		return
	}
	c.JSON(http.StatusOK, newPage(students, total, limit, offset))
}

// UpdateStudent edits a student. Omitted fields keep their value; a status other than
// active stops new loans.
// PUT /api/students/:id
func (pc *PatronsController) UpdateStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		AdmissionNumber *string `json:"admission_number"`
		FirstName       *string `json:"first_name"`
		LastName        *string `json:"last_name"`
		Email           *string `json:"email"`
		ClassID         *uint   `json:"class_id"`
		Status          *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	student, err := pc.store.GetStudentByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "student")
			return
		}
		respondInternalError(c, err, "get student")
		return
	}

	if req.AdmissionNumber != nil {
		if student.AdmissionNumber = strings.TrimSpace(*req.AdmissionNumber); student.AdmissionNumber == "" {
			respondBadRequest(c, "admission_number must not be empty")
			return
		}
	}
	if req.FirstName != nil {
		if student.FirstName = strings.TrimSpace(*req.FirstName); student.FirstName == "" {
			respondBadRequest(c, "first_name must not be empty")
			return
		}
	}
	if req.LastName != nil {
		student.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		student.Email = *req.Email
	}
	if req.Status != nil {
		if !studentStatuses[*req.Status] {
			respondBadRequest(c, "status must be one of active, inactive, suspended, graduated")
			return
		}
		student.Status = *req.Status
	}
	if req.ClassID != nil {
		if _, err := pc.store.GetClassByID(*req.ClassID); err != nil {
			if isRecordNotFound(err) {
				respondBadRequest(c, "class_id does not exist")
				return
			}
			respondInternalError(c, err, "get class")
			return
		}
		student.ClassID = req.ClassID
		student.Class = nil
	}

	if err := pc.store.UpdateStudent(student); err != nil {
		respondInternalError(c, err, "update student")
		return
	}
	saved, err := pc.store.GetStudentByID(id)
	if err != nil {
		respondInternalError(c, err, "reload student")
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GetStudent returns a student with the loans they hold
// GET /api/students/:id
func (pc *PatronsController) GetStudent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	student, err := pc.store.GetStudentByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "student")
			return
		}
		respondInternalError(c, err, "get student")
		return
	}
	loans, err := pc.loans.OpenLoans(c.Request.Context(), entities.StudentRef(id))
	if err != nil {
		respondInternalError(c, err, "student loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student, "open_loans": loans})
}

// CreateStaff registers a staff member. max_books_allowed 0 means the library default.
// POST /api/staff
func (pc *PatronsController) CreateStaff(c *gin.Context) {
	var req struct {
		StaffNumber     string `json:"staff_number" binding:"required"`
		FirstName       string `json:"first_name" binding:"required"`
		LastName        string `json:"last_name"`
		Email           string `json:"email"`
		Department      string `json:"department"`
		Position        string `json:"position"`
		MaxBooksAllowed int    `json:"max_books_allowed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "staff_number and first_name are required")
		return
	}
	if req.MaxBooksAllowed < 0 {
		respondBadRequest(c, "max_books_allowed must not be negative")
		return
	}

	staff := &entities.Staff{
		StaffNumber:     strings.TrimSpace(req.StaffNumber),
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Email:           req.Email,
		Department:      req.Department,
		Position:        req.Position,
		MaxBooksAllowed: req.MaxBooksAllowed,
		Status:          "active",
	}
	if err := pc.store.CreateStaff(staff); err != nil {
		respondInternalError(c, err, "create staff")
		return
	}
	respondCreated(c, staff)
}

// GetStaff returns a staff member with the loans they hold
// GET /api/staff/:id
func (pc *PatronsController) GetStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	staff, err := pc.store.GetStaffByID(id)
	if err != nil {
		if isRecordNotFound(err) {
			respondNotFound(c, "staff member")
			return
		}
		respondInternalError(c, err, "get staff")
		return
	}
	loans, err := pc.loans.OpenLoans(c.Request.Context(), entities.StaffRef(id))
	if err != nil {
		respondInternalError(c, err, "staff loans")
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff, "open_loans": loans})
}
