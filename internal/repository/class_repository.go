package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/univ-admin-api/internal/models"
)

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = "id, label, level, academic_year, created_at, updated_at"

// List returns all classes.
func (r *ClassRepository) List(ctx context.Context) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes ORDER BY academic_year DESC, label", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListByLevel returns classes of a level.
func (r *ClassRepository) ListByLevel(ctx context.Context, level int) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE level = $1 ORDER BY label", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, level); err != nil {
		return nil, fmt.Errorf("list classes by level: %w", err)
	}
	return classes, nil
}

// ListByAcademicYear returns classes of an academic year.
func (r *ClassRepository) ListByAcademicYear(ctx context.Context, year string) ([]models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE academic_year = $1 ORDER BY label", classColumns)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, year); err != nil {
		return nil, fmt.Errorf("list classes by year: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf("SELECT %s FROM classes WHERE id = $1", classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// ExistsByID checks that the class exists. Backs the internal existence
// endpoint gating remote enrollment writes.
func (r *ClassRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	const query = "SELECT 1 FROM classes WHERE id = $1 LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class: %w", err)
	}
	return true, nil
}

// ExistsByLabelAndYear checks uniqueness of (label, academic year).
func (r *ClassRepository) ExistsByLabelAndYear(ctx context.Context, label, year string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classes WHERE label = $1 AND academic_year = $2"
	args := []interface{}{label, year}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class label: %w", err)
	}
	return true, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, label, level, academic_year, created_at, updated_at)
        VALUES (:id, :label, :level, :academic_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET label = :label, level = :level, academic_year = :academic_year, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class. Remote references held by other services are not
// cascaded; they are validated at their own write time.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
