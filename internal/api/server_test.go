package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthzAlwaysOk(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router(false).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsMarkReady(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.Router(false).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.MarkReady()
	rec = httptest.NewRecorder()
	s.Router(false).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsMountedOnlyWhenEnabled(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	rec := httptest.NewRecorder()
	s.Router(false).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.Router(true).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
