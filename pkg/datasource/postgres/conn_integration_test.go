package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/testhelpers"
)

func TestIntegrationIntrospect(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	conn := NewConnWithPool(db.Pool, nil)

	desc, err := conn.Introspect(context.Background())
	require.NoError(t, err)

	require.True(t, desc.HasTable("sales"), "expected sales table")
	require.True(t, desc.HasTable("store"), "expected store table")

	sales, ok := desc.Table("sales")
	require.True(t, ok)
	assert.True(t, sales.HasColumn("sold_price"))
	assert.True(t, sales.HasColumn("sold_date"))
	assert.False(t, sales.HasColumn("sold_price2"))
}

func TestIntegrationExecute(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	conn := NewConnWithPool(db.Pool, nil)
	ctx := context.Background()

	t.Run("simple select", func(t *testing.T) {
		rs, err := conn.Execute(ctx, "SELECT order_id, sold_price FROM sales ORDER BY order_id", datasource.ExecOptions{MaxRows: 100})
		require.NoError(t, err)
		assert.Equal(t, []string{"order_id", "sold_price"}, rs.Columns)
		assert.Equal(t, 5, rs.RowCount)
		assert.Len(t, rs.Rows, 5)
		assert.False(t, rs.Truncated())
	})

	t.Run("max rows truncates while counting", func(t *testing.T) {
		rs, err := conn.Execute(ctx, "SELECT order_id FROM sales ORDER BY order_id", datasource.ExecOptions{MaxRows: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, rs.RowCount)
		assert.Len(t, rs.Rows, 2)
		assert.True(t, rs.Truncated())
	})

	t.Run("statement keeps its own limit", func(t *testing.T) {
		rs, err := conn.Execute(ctx, "SELECT order_id FROM sales ORDER BY order_id LIMIT 3", datasource.ExecOptions{MaxRows: 100})
		require.NoError(t, err)
		assert.Equal(t, 3, rs.RowCount)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := conn.Execute(ctx, "SELEC order_id FROM sales", datasource.ExecOptions{MaxRows: 10})
		var execErr *datasource.ExecError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, datasource.ExecSyntax, execErr.Kind)
		assert.NotEmpty(t, execErr.Message)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := conn.Execute(ctx, "SELECT sold_price2 FROM sales", datasource.ExecOptions{MaxRows: 10})
		var execErr *datasource.ExecError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, datasource.ExecSyntax, execErr.Kind)
	})

	t.Run("statement timeout", func(t *testing.T) {
		_, err := conn.Execute(ctx, "SELECT pg_sleep(5)", datasource.ExecOptions{MaxRows: 10, Timeout: 200 * time.Millisecond})
		var execErr *datasource.ExecError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, datasource.ExecTimeout, execErr.Kind)
	})
}
