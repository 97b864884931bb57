// Command generate_demo creates a demo database with a small school library: classes,
// students, staff, a catalog with tracked copies and a few loans in different states.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/lendingdesk/internal/config"
	"github.com/mrlokans/lendingdesk/internal/entities"
	"github.com/mrlokans/lendingdesk/internal/entrypoint"
	"github.com/mrlokans/lendingdesk/internal/lending"
	"github.com/mrlokans/lendingdesk/internal/logger"
)

const defaultDemoDatabasePath = "./demo/demo.db"

const demoActor = "demo"

// BookConfig holds a catalog entry and how many tracked copies it gets.
type BookConfig struct {
	Book   entities.Book
	Copies int
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log := logger.Must(logger.New("info", true)).Sugar()
	defer func() { _ = log.Sync() }()

	log.Infof("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	cfg := &config.Config{
		Database: config.Database{Driver: config.DriverSQLite, Path: *dbPath},
		Lending: config.Lending{
			LoanPeriodDays:      14,
			StudentDefaultLimit: 2,
			StaffDefaultLimit:   5,
			Currency:            "KES",
			Locale:              "en",
			MismatchDebounce:    time.Second,
		},
	}

	ctx := context.Background()
	app, err := entrypoint.Build(ctx, cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warnf("Failed to close database: %v", err)
		}
	}()

	books := createCatalog(app, log)
	students := createStudents(app, log)
	librarian := createStaff(app, log)

	createLoans(ctx, app, log, books, students, librarian)

	summary, err := app.Reports.Summary(ctx)
	if err != nil {
		log.Fatalf("Failed to summarize demo data: %v", err)
	}
	log.Infof("Demo database generated successfully: %s", app.Reports.Describe(summary))
}

func createCatalog(app *entrypoint.App, log *zap.SugaredLogger) []entities.Book {
	categories := map[string]*entities.Category{
		"Literature": {Name: "Literature", Description: "Set books and novels"},
		"Sciences":   {Name: "Sciences", Description: "Biology, chemistry and physics"},
		"Humanities": {Name: "Humanities", Description: "History and geography"},
	}
	for _, category := range categories {
		if err := app.Catalog.CreateCategory(category); err != nil {
			log.Warnf("Failed to create category %s: %v", category.Name, err)
		}
	}

	configs := getDemoBooks()
	books := make([]entities.Book, 0, len(configs))
	for i, bc := range configs {
		category := categories[categoryFor(i)]
		if category.ID != 0 {
			bc.Book.CategoryID = &category.ID
		}
		if err := app.Catalog.CreateBook(&bc.Book); err != nil {
			log.Warnf("Failed to save book %s: %v", bc.Book.Title, err)
			continue
		}
		copies, err := app.Ledger.AddCopies(bc.Book.ID, bc.Copies, 2024, entities.ConditionGood)
		if err != nil {
			log.Warnf("Failed to add copies to %s: %v", bc.Book.Title, err)
			continue
		}
		log.Infof("Saved: %s by %s (%d copies, first %s)", bc.Book.Title, bc.Book.Author, len(copies), copies[0].TrackingCode)
		books = append(books, bc.Book)
	}
	return books
}

func categoryFor(i int) string {
	switch i % 3 {
	case 0:
		return "Literature"
	case 1:
		return "Sciences"
	default:
		return "Humanities"
	}
}

func getDemoBooks() []BookConfig {
	return []BookConfig{
		{Copies: 6, Book: entities.Book{Title: "The River and the Source", Author: "Margaret Ogola", BookCode: "RIV", Publisher: "Focus Publishers", PublicationYear: 1994}},
		{Copies: 4, Book: entities.Book{Title: "KLB Biology Form 3", Author: "Kenya Literature Bureau", BookCode: "BIO", PublicationYear: 2017}},
		{Copies: 3, Book: entities.Book{Title: "History and Government Form 2", Author: "Kenya Literature Bureau", BookCode: "HIS", PublicationYear: 2016}},
		{Copies: 5, Book: entities.Book{Title: "Blossoms of the Savannah", Author: "Henry Ole Kulet", BookCode: "BLO", Publisher: "Longhorn", PublicationYear: 2008}},
		{Copies: 2, Book: entities.Book{Title: "Secondary Chemistry Form 4", Author: "Kenya Literature Bureau", BookCode: "CHE", PublicationYear: 2018}},
		{Copies: 3, Book: entities.Book{Title: "Kigogo", Author: "Pauline Kea", BookCode: "KIG", Publisher: "Spotlight", PublicationYear: 2016}},
	}
}

func createStudents(app *entrypoint.App, log *zap.SugaredLogger) []entities.PatronRef {
	classes := []*entities.Class{
		{ClassName: "Form 2 East", FormLevel: 2, ClassSection: "East", MaxBooksAllowed: 2, IsActive: true},
		{ClassName: "Form 3 West", FormLevel: 3, ClassSection: "West", MaxBooksAllowed: 3, IsActive: true},
	}
	for _, class := range classes {
		if err := app.Patrons.CreateClass(class); err != nil {
			log.Fatalf("Failed to create class %s: %v", class.ClassName, err)
		}
	}

	names := [][2]string{{"Amani", "Otieno"}, {"Wanjiku", "Kamau"}, {"Baraka", "Mwangi"}, {"Zawadi", "Achieng"}}
	refs := make([]entities.PatronRef, 0, len(names))
	for i, name := range names {
		class := classes[i%len(classes)]
		student := &entities.Student{
			AdmissionNumber: fmt.Sprintf("ADM-%04d", 1201+i),
			FirstName:       name[0],
			LastName:        name[1],
			ClassID:         &class.ID,
		}
		if err := app.Patrons.CreateStudent(student); err != nil {
			log.Warnf("Failed to create student %s: %v", name[0], err)
			continue
		}
		refs = append(refs, entities.StudentRef(student.ID))
	}
	log.Infof("Created %d classes and %d students", len(classes), len(refs))
	return refs
}

func createStaff(app *entrypoint.App, log *zap.SugaredLogger) entities.PatronRef {
	staff := &entities.Staff{
		StaffNumber: "TSC-40213",
		FirstName:   "Grace",
		LastName:    "Wanjiru",
		Department:  "Languages",
		Position:    "Head of Department",
	}
	if err := app.Patrons.CreateStaff(staff); err != nil {
		log.Fatalf("Failed to create staff member: %v", err)
	}
	return entities.StaffRef(staff.ID)
}

// createLoans drives the lending service so copies, counters and fines stay consistent:
// open loans, a returned damaged copy, a lost copy and a bulk issue to a staff member.
func createLoans(ctx context.Context, app *entrypoint.App, log *zap.SugaredLogger, books []entities.Book, students []entities.PatronRef, librarian entities.PatronRef) {
	if len(books) < 4 || len(students) < 3 {
		log.Warn("Not enough demo data to create loans")
		return
	}

	issue := func(patron entities.PatronRef, book entities.Book) *entities.Borrowing {
		loan, err := app.Lending.Issue(ctx, lending.IssueRequest{Patron: patron, BookID: book.ID, IssuedBy: demoActor})
		if err != nil {
			log.Warnf("Failed to issue %s to %s: %v", book.Title, patron, err)
			return nil
		}
		log.Infof("Issued %s (%s) to %s", book.Title, loan.TrackingCode, patron)
		return loan
	}

	issue(students[0], books[0])
	issue(students[0], books[1])

	if loan := issue(students[1], books[0]); loan != nil {
		res, err := app.Lending.Return(ctx, lending.ReturnRequest{
			BorrowingID:          loan.ID,
			ConditionAtReturn:    entities.ConditionDamaged,
			ReturnedTrackingCode: loan.TrackingCode,
			ReturnedBy:           demoActor,
			Notes:                "Cover torn",
		})
		if err != nil {
			log.Warnf("Failed to return %s: %v", loan.TrackingCode, err)
		} else if res.Fine != nil {
			log.Infof("Returned %s damaged, fined %s", loan.TrackingCode, res.Fine.Amount.StringFixed(2))
		}
	}

	if loan := issue(students[2], books[2]); loan != nil {
		if _, err := app.Lending.Return(ctx, lending.ReturnRequest{BorrowingID: loan.ID, IsLost: true, ReturnedBy: demoActor}); err != nil {
			log.Warnf("Failed to mark %s lost: %v", loan.TrackingCode, err)
		} else {
			log.Infof("Marked %s lost", loan.TrackingCode)
		}
	}

	items := []lending.BulkItem{{BookID: books[3].ID}, {BookID: books[0].ID}}
	loans, err := app.Lending.BulkIssue(ctx, lending.BulkIssueRequest{Patron: librarian, Items: items, IssuedBy: demoActor})
	if err != nil {
		log.Warnf("Failed to bulk issue to librarian: %v", err)
		return
	}
	log.Infof("Bulk issued %d books to %s", len(loans), librarian)
}
