// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (sqlite or mysql), migrations
//	├── books/           # Catalog, categories and tracked copies
//	├── patrons/         # Classes, students and staff
//	├── borrowings/      # Loans and loan counts
//	├── fines/           # Fines, fine settings and fine totals
//	├── theft/           # Theft reports
//	├── settings/        # Library policy overrides
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.Open(cfg.Database, log)
//
//	catalog := books.NewRepository(db.DB)
//	loans := borrowings.NewRepository(db.DB)
//
//	copy, err := catalog.GetCopyByTrackingCode("BIO/004/2024")
//	open, err := loans.CountOpenByPatron(entities.StudentRef(42))
//
// Repositories return gorm errors unchanged. Services translate
// gorm.ErrRecordNotFound into errs.NotFound.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register the entity in the models list of database.go
//  5. Add a compile-time interface check in internal/interfaces/checks.go
package database
