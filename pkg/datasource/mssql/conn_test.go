package mssql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mssqldb "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
)

func newMockConn(t *testing.T) (*Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewConnWithDB(db, nil), mock
}

func TestHasRowBound(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT TOP (10) * FROM sales", true},
		{"select top 5 order_id from sales", true},
		{"SELECT * FROM sales ORDER BY order_id OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY", true},
		{"SELECT * FROM sales", false},
		{"SELECT topology FROM sales", false},
	}

	for _, tt := range tests {
		if got := hasRowBound(tt.sql); got != tt.want {
			t.Errorf("hasRowBound(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestExecuteWrapsUnboundedStatement(t *testing.T) {
	conn, mock := newMockConn(t)

	wrapped := "SELECT TOP (100000) * FROM (SELECT order_id FROM sales) AS _limited"
	mock.ExpectQuery(regexp.QuoteMeta(wrapped)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(101).AddRow(102))

	rs, err := conn.Execute(context.Background(), "SELECT order_id FROM sales", datasource.ExecOptions{MaxRows: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id"}, rs.Columns)
	assert.Equal(t, 2, rs.RowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteKeepsBoundedStatement(t *testing.T) {
	conn, mock := newMockConn(t)

	stmt := "SELECT TOP (3) order_id FROM sales"
	mock.ExpectQuery(regexp.QuoteMeta(stmt)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(101))

	_, err := conn.Execute(context.Background(), stmt, datasource.ExecOptions{MaxRows: 10})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMaxRowsTruncatesWhileCounting(t *testing.T) {
	conn, mock := newMockConn(t)

	rows := sqlmock.NewRows([]string{"order_id"})
	for i := 101; i <= 105; i++ {
		rows.AddRow(i)
	}
	mock.ExpectQuery("SELECT TOP").WillReturnRows(rows)

	rs, err := conn.Execute(context.Background(), "SELECT order_id FROM sales", datasource.ExecOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, rs.RowCount)
	assert.Len(t, rs.Rows, 2)
	assert.True(t, rs.Truncated())
}

func TestExecuteClassifiesServerError(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectQuery("SELECT TOP").WillReturnError(mssqldb.Error{
		Number:  207,
		Message: "Invalid column name 'sold_price2'.",
	})

	_, err := conn.Execute(context.Background(), "SELECT sold_price2 FROM sales", datasource.ExecOptions{MaxRows: 10})
	var execErr *datasource.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, datasource.ExecSyntax, execErr.Kind)
	assert.Contains(t, execErr.Message, "sold_price2")
}

func TestIntrospect(t *testing.T) {
	conn, mock := newMockConn(t)

	rows := sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE"}).
		AddRow("sales", "order_id", "int").
		AddRow("sales", "sold_price", "decimal").
		AddRow("store", "store_id", "int")
	mock.ExpectQuery("INFORMATION_SCHEMA.COLUMNS").WillReturnRows(rows)

	desc, err := conn.Introspect(context.Background())
	require.NoError(t, err)
	require.Len(t, desc.Tables, 2)
	assert.True(t, desc.HasColumn("sales", "sold_price"))
	assert.True(t, desc.HasColumn("store", "store_id"))
}

func TestKindForErrorNumber(t *testing.T) {
	tests := []struct {
		number int32
		want   datasource.ExecErrorKind
	}{
		{102, datasource.ExecSyntax},
		{208, datasource.ExecSyntax},
		{229, datasource.ExecPermission},
		{18456, datasource.ExecPermission},
		{1222, datasource.ExecTimeout},
		{8134, datasource.ExecOther},
	}

	for _, tt := range tests {
		if got := kindForErrorNumber(tt.number); got != tt.want {
			t.Errorf("kindForErrorNumber(%d) = %q, want %q", tt.number, got, tt.want)
		}
	}
}
