package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/service"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   errorBody
	}{
		{"not found", service.ErrEventNotFound, http.StatusNotFound, errorBody{"Event not found", "NOT_FOUND"}},
		{"full", service.ErrEventFull, http.StatusBadRequest, errorBody{"Event is full", "CAPACITY_EXCEEDED"}},
		{"duplicate", service.ErrAlreadyBooked, http.StatusBadRequest, errorBody{"User already has an accommodation booking", "DUPLICATE_ACTION"}},
		{"precursor", service.ErrNoJudgeAssigned, http.StatusBadRequest, errorBody{"No judge assigned to this event", "PRECURSOR_MISSING"}},
		{"dependents", apperr.New(apperr.HasDependents, "Cannot delete venue with scheduled events"), http.StatusConflict, errorBody{"Cannot delete venue with scheduled events", "HAS_DEPENDENTS"}},
		{"conflict", service.ErrVenueBooked, http.StatusConflict, errorBody{service.ErrVenueBooked.Message, "CONFLICT"}},
		{"forbidden", service.ErrJudgeNotAssigned, http.StatusForbidden, errorBody{"Judge is not assigned to this event", "FORBIDDEN"}},
		{"wrapped sentinel", fmt.Errorf("register: %w", service.ErrAlreadyRegistered.With(errors.New("23505"))), http.StatusBadRequest, errorBody{service.ErrAlreadyRegistered.Message, "DUPLICATE_ACTION"}},
		{"unknown hides cause", errors.New("pq: connection refused"), http.StatusInternalServerError, errorBody{internalMessage, "UNKNOWN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var got errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
			assert.True(t, c.IsAborted())
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per IP")
}

func TestIPRateLimiter_PrunesIdle(t *testing.T) {
	l := NewIPRateLimiter(1)
	for i := 0; i <= cleanupThreshold; i++ {
		l.Allow(fmt.Sprintf("10.1.%d.%d", i/256, i%256))
	}
	l.mu.Lock()
	for _, e := range l.ips {
		e.lastSeen = time.Now().Add(-2 * maxIdleAge)
	}
	l.mu.Unlock()

	l.Allow("10.9.9.9")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.ips, 1)
}

func TestParamID(t *testing.T) {
	tests := []struct {
		raw    string
		wantID int
		wantOK bool
	}{
		{"12", 12, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"x", 0, false},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Params = gin.Params{{Key: "id", Value: tt.raw}}

		id, ok := paramID(c, "id")
		assert.Equal(t, tt.wantID, id, tt.raw)
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		if !ok {
			assert.Equal(t, http.StatusBadRequest, w.Code)
		}
	}
}
