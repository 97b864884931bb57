// Package patrons provides database operations for borrowers: students, staff
// and the classes that carry per-student borrowing limits.
//
// # Usage
//
//	repo := patrons.NewRepository(db)
//	student, err := repo.GetStudentByID(42)
package patrons

import (
	"gorm.io/gorm"

	"github.com/mrlokans/lendingdesk/internal/entities"
)

// Repository handles all patron database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new patrons repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateClass inserts a class.
func (r *Repository) CreateClass(class *entities.Class) error {
	return r.db.Create(class).Error
}

// GetClassByID retrieves a class.
func (r *Repository) GetClassByID(id uint) (*entities.Class, error) {
	var class entities.Class
	if err := r.db.First(&class, id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

// GetAllClasses returns all classes ordered by form level and name.
func (r *Repository) GetAllClasses() ([]entities.Class, error) {
	var classes []entities.Class
	err := r.db.Order("form_level ASC, class_name ASC").Find(&classes).Error
	return classes, err
}

// CreateStudent inserts a student.
func (r *Repository) CreateStudent(student *entities.Student) error {
	return r.db.Create(student).Error
}

// GetStudentByID retrieves a student with their class.
func (r *Repository) GetStudentByID(id uint) (*entities.Student, error) {
	var student entities.Student
	if err := r.db.Preload("Class").First(&student, id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

// ListStudents returns a page of students ordered by name.
func (r *Repository) ListStudents(filter entities.StudentFilter, limit, offset int) ([]entities.Student, int64, error) {
	var students []entities.Student
	var total int64

	query := r.db.Model(&entities.Student{})
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR admission_number LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Preload("Class").
		Order("last_name ASC, first_name ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&students).Error
	return students, total, err
}

// UpdateStudent saves the editable fields of a student.
func (r *Repository) UpdateStudent(student *entities.Student) error {
	return r.db.Model(student).
		Select("admission_number", "first_name", "last_name", "email", "class_id", "status").
		Updates(student).Error
}

// DeleteStudent soft-deletes a student. Loans and fines keep pointing at the row.
func (r *Repository) DeleteStudent(id uint) error {
	res := r.db.Delete(&entities.Student{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetStudentsByIDs loads several students with their classes in one query. Deleted
// students are included so that historical reports still name them.
func (r *Repository) GetStudentsByIDs(ids []uint) ([]entities.Student, error) {
	var students []entities.Student
	if len(ids) == 0 {
		return students, nil
	}
	err := r.db.Unscoped().Preload("Class").Where("id IN ?", ids).Find(&students).Error
	return students, err
}

// CreateStaff inserts a staff member.
func (r *Repository) CreateStaff(staff *entities.Staff) error {
	return r.db.Create(staff).Error
}

// GetStaffByID retrieves a staff member.
func (r *Repository) GetStaffByID(id uint) (*entities.Staff, error) {
	var staff entities.Staff
	if err := r.db.First(&staff, id).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

// GetStaffByIDs loads several staff members in one query.
func (r *Repository) GetStaffByIDs(ids []uint) ([]entities.Staff, error) {
	var staff []entities.Staff
	if len(ids) == 0 {
		return staff, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&staff).Error
	return staff, err
}

// CountPatrons returns the number of students and staff members.
func (r *Repository) CountPatrons() (students, staff int64, err error) {
	if err = r.db.Model(&entities.Student{}).Count(&students).Error; err != nil {
		return 0, 0, err
	}
	err = r.db.Model(&entities.Staff{}).Count(&staff).Error
	return students, staff, err
}
