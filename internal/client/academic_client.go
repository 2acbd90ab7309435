package client

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/internal/models"
	appErrors "github.com/noah-isme/univ-admin-api/pkg/errors"
)

// AcademicClient resolves class and subject references against the academic
// service. Resolved refs are cached in Redis for a short TTL so read paths
// can decorate local rows without hammering the peer; the cache is never
// consulted for the write-gating existence check.
type AcademicClient struct {
	remoteCaller
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewAcademicClient constructs an AcademicClient. cache may be nil.
func NewAcademicClient(baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *AcademicClient {
	return &AcademicClient{
		remoteCaller: newRemoteCaller(baseURL, timeout, cb, logger),
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

// GetClass fetches a class reference.
func (c *AcademicClient) GetClass(ctx context.Context, id string) (*models.ClassRef, error) {
	var ref models.ClassRef
	if c.cacheGet(ctx, "ref:class:"+id, &ref) {
		return &ref, nil
	}
	status, err := c.do(ctx, http.MethodGet, "/internal/classes/"+id, nil, &ref)
	if err != nil {
		return nil, unavailable(err, "academic service unavailable")
	}
	if status == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	c.cacheSet(ctx, "ref:class:"+id, ref)
	return &ref, nil
}

// GetSubject fetches a subject reference.
func (c *AcademicClient) GetSubject(ctx context.Context, id string) (*models.SubjectRef, error) {
	var ref models.SubjectRef
	if c.cacheGet(ctx, "ref:subject:"+id, &ref) {
		return &ref, nil
	}
	status, err := c.do(ctx, http.MethodGet, "/internal/subjects/"+id, nil, &ref)
	if err != nil {
		return nil, unavailable(err, "academic service unavailable")
	}
	if status == http.StatusNotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	c.cacheSet(ctx, "ref:subject:"+id, ref)
	return &ref, nil
}

// ClassExists checks that a class exists. This gates enrollment writes, so
// it always hits the peer and surfaces upstream failures.
func (c *AcademicClient) ClassExists(ctx context.Context, id string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	status, err := c.do(ctx, http.MethodGet, "/internal/classes/"+id+"/exists", nil, &out)
	if err != nil {
		return false, unavailable(err, "academic service unavailable")
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	return out.Exists, nil
}

func (c *AcademicClient) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if c.cache == nil {
		return false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (c *AcademicClient) cacheSet(ctx context.Context, key string, value interface{}) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("remote ref cache write failed", zap.String("key", key), zap.Error(err))
	}
}
