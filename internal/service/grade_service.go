package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	"github.com/noah-isme/univ-admin-api/pkg/export"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	FindByEvaluationAndStudent(ctx context.Context, evaluationID, studentID string) (*models.Grade, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	UpdateValue(ctx context.Context, id string, value float64) error
	Delete(ctx context.Context, id string) error
}

type studentDirectory interface {
	GetStudent(ctx context.Context, id string) (*models.StudentRef, error)
	ListStudentsByClass(ctx context.Context, classID string) ([]models.StudentRef, error)
}

// RecordGradeRequest records one student's mark for an evaluation.
type RecordGradeRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Value     float64 `json:"value" validate:"gte=0,lte=20"`
}

// GradeService records and imports grades. The student reference belongs to
// the student service; single writes verify it through the circuit-broken
// client, bulk imports fetch the class roster once and reconcile against it.
type GradeService struct {
	grades      gradeRepository
	evaluations evaluationRepository
	students    studentDirectory
	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeRepository, evaluations evaluationRepository, students studentDirectory, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:      grades,
		evaluations: evaluations,
		students:    students,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// Record upserts one grade. An existing (evaluation, student) grade is
// updated in place.
func (s *GradeService) Record(ctx context.Context, evaluationID string, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if _, err := s.loadEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}
	if _, err := s.students.GetStudent(ctx, req.StudentID); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, err
	}
	return s.upsert(ctx, evaluationID, req.StudentID, req.Value)
}

// Get returns a grade by ID.
func (s *GradeService) Get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.grades.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// ListByEvaluation returns all grades of an evaluation.
func (s *GradeService) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error) {
	if _, err := s.loadEvaluation(ctx, evaluationID); err != nil {
		return nil, err
	}
	grades, err := s.grades.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListByStudent returns all grades of a student.
func (s *GradeService) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	grades, err := s.grades.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if _, err := s.grades.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if err := s.grades.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}

// ImportCSV reconciles a CSV of (matricule, value) rows against the roster
// of the evaluation's class. The roster is fetched once up front; when the
// student service cannot provide it the import is refused, since rows could
// not be attributed. Row-level problems are collected and reported while the
// rest of the file proceeds.
func (s *GradeService) ImportCSV(ctx context.Context, evaluationID string, file io.Reader) (*models.GradeImportResult, error) {
	evaluation, err := s.loadEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	roster, err := s.students.ListStudentsByClass(ctx, evaluation.ClassID)
	if err != nil {
		return nil, err
	}
	byMatricule := make(map[string]string, len(roster))
	for _, ref := range roster {
		byMatricule[ref.Matricule] = ref.ID
	}

	result := &models.GradeImportResult{Errors: []models.GradeImportError{}}
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errored++
			result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "malformed row"})
			continue
		}
		if len(record) < 2 {
			result.Errored++
			result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "expected matricule,value", Content: strings.Join(record, ",")})
			continue
		}
		matricule := strings.TrimSpace(record[0])
		rawValue := strings.TrimSpace(record[1])
		if line == 1 && strings.EqualFold(matricule, "matricule") {
			continue
		}
		if matricule == "" {
			result.Errored++
			result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "empty matricule"})
			continue
		}

		studentID, known := byMatricule[matricule]
		if !known {
			result.Errored++
			result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "matricule not in class roster", Content: matricule})
			continue
		}

		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil || value < 0 || value > 20 {
			result.Errored++
			result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "value must be a number between 0 and 20", Content: rawValue})
			continue
		}

		existing, err := s.grades.FindByEvaluationAndStudent(ctx, evaluationID, studentID)
		switch {
		case err == nil:
			if existing.Value == value {
				result.Skipped++
				continue
			}
			if err := s.grades.UpdateValue(ctx, existing.ID, value); err != nil {
				result.Errored++
				result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "failed to update grade", Content: matricule})
				s.logger.Error("grade import update failed", zap.String("matricule", matricule), zap.Error(err))
				continue
			}
			result.Updated++
		case errors.Is(err, sql.ErrNoRows):
			grade := &models.Grade{EvaluationID: evaluationID, StudentID: studentID, Value: value}
			if err := s.grades.Create(ctx, grade); err != nil {
				result.Errored++
				result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "failed to create grade", Content: matricule})
				s.logger.Error("grade import insert failed", zap.String("matricule", matricule), zap.Error(err))
				continue
			}
			result.Created++
		default:
			result.Errored++
			result.Errors = append(result.Errors, models.GradeImportError{Line: line, Reason: "failed to look up grade", Content: matricule})
			s.logger.Error("grade import lookup failed", zap.String("matricule", matricule), zap.Error(err))
		}
	}

	s.logger.Info("grade import finished",
		zap.String("evaluation_id", evaluationID),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errored", result.Errored))
	return result, nil
}

// ExportCSV renders an evaluation's grades as CSV, resolving matricules
// through the student service when it answers.
func (s *GradeService) ExportCSV(ctx context.Context, evaluationID string) ([]byte, error) {
	dataset, err := s.dataset(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	out, err := s.csvExporter.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, nil
}

// ExportPDF renders an evaluation's grades as PDF.
func (s *GradeService) ExportPDF(ctx context.Context, evaluationID string) ([]byte, error) {
	evaluation, err := s.loadEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	dataset, err := s.dataset(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	out, err := s.pdfExporter.Render(*dataset, fmt.Sprintf("Grades - %s", evaluation.Label))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return out, nil
}

func (s *GradeService) dataset(ctx context.Context, evaluationID string) (*export.Dataset, error) {
	grades, err := s.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	dataset := &export.Dataset{Headers: []string{"matricule", "student", "value"}}
	for _, g := range grades {
		row := map[string]string{"value": strconv.FormatFloat(g.Value, 'f', 2, 64)}
		if ref, err := s.students.GetStudent(ctx, g.StudentID); err == nil {
			row["matricule"] = ref.Matricule
			row["student"] = ref.LastName + " " + ref.FirstName
		} else {
			row["matricule"] = g.StudentID
			s.logger.Debug("student lookup failed during export", zap.String("student_id", g.StudentID), zap.Error(err))
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset, nil
}

func (s *GradeService) loadEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	evaluation, err := s.evaluations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return evaluation, nil
}
