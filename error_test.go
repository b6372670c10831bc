package godiag

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain", errors.New("boom"), true},
		{"timeout", &TimeoutError{Op: "read"}, true},
		{"unrecoverable", Unrecoverable(ErrClosed), false},
		{"wrapped", fmt.Errorf("write: %w", Unrecoverable(ErrClosed)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("IsRecoverable() = %v, want %v", got, tt.want)
			}
		})
	}
	if !errors.Is(Unrecoverable(ErrClosed), ErrClosed) {
		t.Error("Unrecoverable hides the wrapped error")
	}
}

func TestTimeoutError(t *testing.T) {
	var err error = &TimeoutError{Op: "K-line read", After: time.Second}
	if got := err.Error(); got != "K-line read timeout (1000ms)" {
		t.Errorf("Error() = %q", got)
	}
	if te, ok := err.(interface{ Timeout() bool }); !ok || !te.Timeout() {
		t.Error("Timeout() = false")
	}

	err = &TimeoutError{Op: "ECU announcement (10 blocks)"}
	if got := err.Error(); got != "ECU announcement (10 blocks) timeout" {
		t.Errorf("Error() without duration = %q", got)
	}
}

func TestNegativeResponseError(t *testing.T) {
	err := &NegativeResponseError{Service: 0x01, Code: 0x12}
	want := "ECU returned error code 0x12 for service 0x01, query may not be supported"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q", got)
	}
}
