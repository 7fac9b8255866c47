package mssql

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
)

// classifyError maps a go-mssqldb failure onto the datasource error
// taxonomy using the server's error number where available.
func classifyError(err error) *datasource.ExecError {
	if err == nil {
		return nil
	}

	var sqlErr mssqldb.Error
	if errors.As(err, &sqlErr) {
		kind := kindForErrorNumber(sqlErr.Number)
		return datasource.NewExecError(kind, sqlErr.Message, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return datasource.NewExecError(datasource.ExecTimeout, "statement timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return datasource.NewExecError(datasource.ExecConnection, "operation canceled", err)
	}
	if errors.Is(err, driver.ErrBadConn) {
		return datasource.NewExecError(datasource.ExecConnection, "connection is no longer usable", err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "unexpected eof", "network error"} {
		if strings.Contains(lower, marker) {
			return datasource.NewExecError(datasource.ExecConnection, msg, err)
		}
	}

	return datasource.NewExecError(datasource.ExecOther, msg, err)
}

func kindForErrorNumber(number int32) datasource.ExecErrorKind {
	switch number {
	case 102, 105, 156, 207, 208, 1038, 4104:
		// incorrect syntax, invalid column, invalid object name,
		// unbound multi-part identifier
		return datasource.ExecSyntax
	case 229, 230, 262, 297, 300, 18456:
		// permission denied on object or statement, login failed
		return datasource.ExecPermission
	case 1222:
		// lock request timeout
		return datasource.ExecTimeout
	default:
		return datasource.ExecOther
	}
}
