package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errFull = New(CapacityExceeded, "Event is full")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"sentinel", errFull, CapacityExceeded},
		{"wrapped with fmt", fmt.Errorf("register: %w", errFull), CapacityExceeded},
		{"with cause", errFull.With(errors.New("boom")), CapacityExceeded},
		{"plain error", errors.New("db down"), Unknown},
		{"nil", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorIs(t *testing.T) {
	cause := errors.New("duplicate key")
	err := fmt.Errorf("tx: %w", errFull.With(cause))

	assert.ErrorIs(t, err, errFull)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, New(CapacityExceeded, "No rooms available"))
	assert.NotErrorIs(t, err, New(DuplicateAction, "Event is full"))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "Event is full", errFull.Error())
	assert.Equal(t, "Event is full: boom", errFull.With(errors.New("boom")).Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		NotFound:         http.StatusNotFound,
		CapacityExceeded: http.StatusBadRequest,
		DuplicateAction:  http.StatusBadRequest,
		InvalidInput:     http.StatusBadRequest,
		PrecursorMissing: http.StatusBadRequest,
		HasDependents:    http.StatusConflict,
		Conflict:         http.StatusConflict,
		Unauthorized:     http.StatusUnauthorized,
		Forbidden:        http.StatusForbidden,
		Unknown:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Event is full", Message(fmt.Errorf("x: %w", errFull), "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("raw"), "fallback"))
}
