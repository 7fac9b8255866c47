package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
)

// classifyError maps a pgx failure onto the datasource error taxonomy.
// SQLSTATE classes carry the signal when the server produced the error;
// context and transport errors cover the rest.
func classifyError(err error) *datasource.ExecError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := kindForSQLState(pgErr.Code)
		return datasource.NewExecError(kind, pgErr.Message, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return datasource.NewExecError(datasource.ExecTimeout, "statement timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return datasource.NewExecError(datasource.ExecConnection, "operation canceled", err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, marker := range []string{"connection refused", "closed pool", "conn closed", "broken pipe", "reset by peer", "unexpected eof"} {
		if strings.Contains(lower, marker) {
			return datasource.NewExecError(datasource.ExecConnection, msg, err)
		}
	}

	return datasource.NewExecError(datasource.ExecOther, msg, err)
}

func kindForSQLState(code string) datasource.ExecErrorKind {
	switch {
	case code == "57014": // query_canceled, raised by statement_timeout
		return datasource.ExecTimeout
	case code == "42501": // insufficient_privilege
		return datasource.ExecPermission
	case strings.HasPrefix(code, "28"): // invalid authorization
		return datasource.ExecPermission
	case strings.HasPrefix(code, "42"): // syntax error or unknown relation/column
		return datasource.ExecSyntax
	case strings.HasPrefix(code, "08"): // connection exception
		return datasource.ExecConnection
	case strings.HasPrefix(code, "57P"): // server shutdown or crash
		return datasource.ExecConnection
	default:
		return datasource.ExecOther
	}
}
