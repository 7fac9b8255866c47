package datasource

import (
	"errors"
	"testing"
)

func TestExecErrorRetryable(t *testing.T) {
	tests := []struct {
		kind      ExecErrorKind
		retryable bool
	}{
		{ExecSyntax, true},
		{ExecPermission, true},
		{ExecTimeout, true},
		{ExecOther, true},
		{ExecConnection, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := NewExecError(tt.kind, "boom", nil)
			if got := err.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestExecErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewExecError(ExecSyntax, "bad statement", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var execErr *ExecError
	if !errors.As(error(err), &execErr) {
		t.Fatal("expected errors.As to match *ExecError")
	}
	if execErr.Kind != ExecSyntax {
		t.Errorf("Kind = %q, want %q", execErr.Kind, ExecSyntax)
	}
}

func TestResultSetTruncated(t *testing.T) {
	rs := &ResultSet{
		Columns:  []string{"n"},
		Rows:     [][]any{{1}, {2}},
		RowCount: 5,
	}
	if !rs.Truncated() {
		t.Error("expected Truncated() = true when RowCount > len(Rows)")
	}

	rs.RowCount = 2
	if rs.Truncated() {
		t.Error("expected Truncated() = false when RowCount == len(Rows)")
	}
}
