package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestCLIErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := ServerUnreachable("http://files.lan:8080", cause)

	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through errors.Is")
	}
	if got := err.Error(); got != "Cannot reach server at http://files.lan:8080: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
	if err.Code != ExitNetwork {
		t.Fatalf("code = %d", err.Code)
	}
}

func TestWithHint(t *testing.T) {
	err := New(ExitUsage, "bad flag").WithHint("see --help")
	if err.Hint != "see --help" || err.Error() != "bad flag" {
		t.Fatalf("unexpected error %+v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneral},
		{"cli", NotATerminal(), ExitUsage},
		{"wrapped cli", fmt.Errorf("outer: %w", ConfigFailed("write config", nil)), ExitConfig},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), ExitTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestFailedHints(t *testing.T) {
	tests := []struct {
		status   int
		wantHint string
	}{
		{http.StatusNotFound, "rbrowse ls"},
		{http.StatusInternalServerError, "retry"},
		{http.StatusForbidden, "server logs"},
	}
	for _, tt := range tests {
		err := RequestFailed("download", tt.status, nil)
		if !strings.Contains(err.Hint, tt.wantHint) {
			t.Errorf("status %d hint = %q, want to contain %q", tt.status, err.Hint, tt.wantHint)
		}
		if err.Message != "download failed" || err.Code != ExitNetwork {
			t.Errorf("status %d: unexpected %+v", tt.status, err)
		}
	}
}
