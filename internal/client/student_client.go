package client

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

// StudentClient resolves student references against the student service,
// which owns the enrollment roster.
type StudentClient struct {
	remoteCaller
}

// NewStudentClient constructs a StudentClient.
func NewStudentClient(baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *StudentClient {
	return &StudentClient{remoteCaller: newRemoteCaller(baseURL, timeout, cb, logger)}
}

// GetStudent fetches a student reference by id.
func (c *StudentClient) GetStudent(ctx context.Context, id string) (*models.StudentRef, error) {
	var ref models.StudentRef
	status, err := c.do(ctx, http.MethodGet, "/internal/students/"+id, nil, &ref)
	if err != nil {
		return nil, unavailable(err, "student service unavailable")
	}
	if status == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &ref, nil
}

// GetStudentByMatricule fetches a student reference by matricule.
func (c *StudentClient) GetStudentByMatricule(ctx context.Context, matricule string) (*models.StudentRef, error) {
	var ref models.StudentRef
	status, err := c.do(ctx, http.MethodGet, "/internal/students/matricule/"+matricule, nil, &ref)
	if err != nil {
		return nil, unavailable(err, "student service unavailable")
	}
	if status == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &ref, nil
}

// ListStudentsByClass returns the students actively enrolled in a class.
// Callers on read-only paths degrade to an empty roster when this fails;
// the grade importer treats a failure as write-gating instead.
func (c *StudentClient) ListStudentsByClass(ctx context.Context, classID string) ([]models.StudentRef, error) {
	var refs []models.StudentRef
	status, err := c.do(ctx, http.MethodGet, "/internal/classes/"+classID+"/students", nil, &refs)
	if err != nil {
		return nil, unavailable(err, "student service unavailable")
	}
	if status == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class roster not found")
	}
	return refs, nil
}
