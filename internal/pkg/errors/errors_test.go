package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("EVENT_NOT_FOUND", "event not found", http.StatusNotFound),
			want: "EVENT_NOT_FOUND: event not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(errors.New("disk gone"), "STATE_LOAD_FAILED", "load state", http.StatusInternalServerError),
			want: "STATE_LOAD_FAILED: load state: disk gone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := Wrap(inner, "X", "outer", http.StatusBadRequest)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := BadRequest(CodeInvalidRequest, "bad")
	wrapped := fmt.Errorf("outer: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError() should detect a wrapped AppError")
	}
	if got.Code != CodeInvalidRequest {
		t.Errorf("Code = %q, want %q", got.Code, CodeInvalidRequest)
	}

	if _, ok := IsAppError(errors.New("plain")); ok {
		t.Error("IsAppError() should not match a plain error")
	}
}

func TestConstructors_Status(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NotFound("C", "m"), http.StatusNotFound},
		{BadRequest("C", "m"), http.StatusBadRequest},
		{Unauthorized("C", "m"), http.StatusUnauthorized},
		{Forbidden("C", "m"), http.StatusForbidden},
		{Conflict("C", "m"), http.StatusConflict},
		{Internal("C", "m"), http.StatusInternalServerError},
		{Unavailable("C", "m"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		if tt.err.HTTPStatus != tt.want {
			t.Errorf("%s: HTTPStatus = %d, want %d", tt.err.Code, tt.err.HTTPStatus, tt.want)
		}
	}
}

func TestErrLockTimeoutf_IsRetryableSentinel(t *testing.T) {
	err := ErrLockTimeoutf("team-a")
	if !errors.Is(err, ErrLockTimeout) {
		t.Error("lock timeout AppError should wrap ErrLockTimeout")
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus = %d, want 503", err.HTTPStatus)
	}
	if err.Params["team_id"] != "team-a" {
		t.Errorf("Params[team_id] = %v, want team-a", err.Params["team_id"])
	}
}
