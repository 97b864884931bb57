package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log.Named("http")))
	if corsHandler := CORSMiddleware(cfg.CORSOrigins); corsHandler != nil {
		router.Use(corsHandler)
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	// Catalog endpoints
	if cfg.Catalog != nil && cfg.Ledger != nil {
		catalog := NewCatalogController(cfg.Catalog, cfg.Ledger)
		api.POST("/categories", catalog.CreateCategory)
		api.GET("/categories", catalog.ListCategories)
		api.POST("/books", catalog.CreateBook)
		api.GET("/books", catalog.ListBooks)
		api.GET("/books/:id", catalog.GetBook)
		api.PUT("/books/:id", catalog.UpdateBook)
		api.GET("/books/:id/copies", catalog.ListCopies)
		api.POST("/books/:id/copies", catalog.AddCopies)
		api.GET("/copies/*code", catalog.GetCopy)
	}

	// Borrowing lifecycle endpoints
	if cfg.Lending != nil {
		if cfg.Patrons != nil {
			patrons := NewPatronsController(cfg.Patrons, cfg.Lending)
			api.POST("/classes", patrons.CreateClass)
			api.GET("/classes", patrons.ListClasses)
			api.POST("/students", patrons.CreateStudent)
			api.GET("/students", patrons.ListStudents)
			api.GET("/students/:id", patrons.GetStudent)
			api.PUT("/students/:id", patrons.UpdateStudent)
			api.POST("/staff", patrons.CreateStaff)
			api.GET("/staff/:id", patrons.GetStaff)
		}

		records := NewRecordsController(cfg.Lending)
		api.DELETE("/books/:id", records.DeleteBook)
		api.DELETE("/students/:id", records.DeleteStudent)

		borrowings := NewBorrowingsController(cfg.Lending)
		api.POST("/borrowings", borrowings.Issue)
		api.POST("/borrowings/bulk", borrowings.BulkIssue)
		api.POST("/borrowings/found", borrowings.FoundLostBook)
		api.GET("/borrowings", borrowings.ListBorrowings)
		api.GET("/borrowings/:id", borrowings.GetBorrowing)
		api.POST("/borrowings/:id/return", borrowings.Return)

		theft := NewTheftController(cfg.Detector, cfg.Lending)
		if cfg.Detector != nil {
			api.POST("/theft/detect", theft.Detect)
		}
		api.GET("/theft/reports", theft.ListReports)
		api.PATCH("/theft/reports/:id", theft.UpdateReport)
	}

	// Fine endpoints
	if cfg.Fines != nil {
		finesController := NewFinesController(cfg.Fines, cfg.Auditor)
		api.POST("/fines", finesController.CreateFine)
		api.GET("/fines", finesController.ListFines)
		api.POST("/fines/:id/pay", finesController.PayFine)
		api.POST("/fines/:id/collect", finesController.CollectFine)
		api.POST("/fines/:id/clear", finesController.ClearFine)
		api.GET("/fine-settings", finesController.ListFineSettings)
		api.PUT("/fine-settings/:type", finesController.UpdateFineSetting)
	}

	// Reporting endpoints
	if cfg.Reports != nil {
		reportsController := NewReportsController(cfg.Reports, cfg.Archive)
		api.GET("/reports/summary", reportsController.Summary)
		api.GET("/reports/borrowings", reportsController.Borrowings)
		api.GET("/reports/fines", reportsController.Fines)
		api.GET("/reports/archive/latest", reportsController.LatestArchive)
	}

	// Settings endpoints
	if cfg.Settings != nil {
		settingsController := NewSettingsController(cfg.BaseContext, cfg.Settings, cfg.Scheduler, cfg.Auditor)
		api.GET("/settings/lending", settingsController.GetLendingPolicy)
		api.PUT("/settings/lending", settingsController.UpdateLendingPolicy)
		api.DELETE("/settings/lending", settingsController.ResetLendingPolicy)
		api.GET("/settings/maintenance", settingsController.GetMaintenance)
		api.PUT("/settings/maintenance", settingsController.UpdateMaintenance)
		api.DELETE("/settings/maintenance", settingsController.ResetMaintenance)
	}

	// Task management endpoints
	if cfg.TaskQueue != nil {
		tasksController := NewTasksController(cfg.TaskQueue)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
		api.POST("/tasks/:type/run", tasksController.RunTask)
	}

	// Audit endpoints
	if cfg.AuditReader != nil {
		auditController := NewAuditController(cfg.AuditReader)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	return router
}
