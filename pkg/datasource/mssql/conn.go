// Package mssql implements the datasource contract over go-mssqldb
// through database/sql.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/logging"
	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// Conn is a SQL Server connection implementing datasource.Conn.
type Conn struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ datasource.Conn = (*Conn)(nil)

// Connect opens a connection against cfg and verifies it with a ping.
// If logger is nil, a no-op logger is used.
func Connect(ctx context.Context, cfg *Config, logger *zap.Logger) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mssql config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlserver", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	logger.Info("connected to sqlserver",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Conn{db: db, logger: logger}, nil
}

// NewConnWithDB wraps an existing handle (for tests).
func NewConnWithDB(db *sql.DB, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{db: db, logger: logger}
}

// Dialect returns the SQL Server dialect marker.
func (c *Conn) Dialect() datasource.Dialect {
	return datasource.DialectMSSQL
}

// Ping verifies the connection is still usable.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// Close releases the handle.
func (c *Conn) Close() error {
	return c.db.Close()
}

// introspectQuery lists user table columns in declaration order,
// skipping views.
const introspectQuery = `
	SELECT c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE
	FROM INFORMATION_SCHEMA.COLUMNS c
	JOIN INFORMATION_SCHEMA.TABLES t
	  ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
	WHERE t.TABLE_TYPE = 'BASE TABLE'
	ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION`

// Introspect reads the live schema from INFORMATION_SCHEMA.
func (c *Conn) Introspect(ctx context.Context) (*schema.Descriptor, error) {
	rows, err := c.db.QueryContext(ctx, introspectQuery)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	defer rows.Close()

	desc := &schema.Descriptor{}
	var current *schema.Table
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		if current == nil || current.Name != tableName {
			desc.Tables = append(desc.Tables, schema.Table{Name: tableName})
			current = &desc.Tables[len(desc.Tables)-1]
		}
		current.Columns = append(current.Columns, schema.Column{
			Name: columnName,
			Type: schema.NormalizeType(dataType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read schema rows: %w", err)
	}

	c.logger.Debug("schema introspected", zap.Int("tables", len(desc.Tables)))
	return desc, nil
}

var rowBoundPattern = regexp.MustCompile(`(?i)\btop\s*\(?\s*\d|\bfetch\s+(first|next)\b`)

// hasRowBound reports whether the statement already bounds its own
// result set with TOP or OFFSET...FETCH.
func hasRowBound(sqlText string) bool {
	return rowBoundPattern.MatchString(sqlText)
}

// Execute runs sqlText under opts. Statements without their own TOP or
// FETCH are wrapped with a TOP bound at the scan ceiling; the scan loop
// retains at most opts.MaxRows while counting everything the statement
// yielded.
func (c *Conn) Execute(ctx context.Context, sqlText string, opts datasource.ExecOptions) (*datasource.ResultSet, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	queryToRun := sqlText
	if !hasRowBound(sqlText) {
		queryToRun = fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", datasource.MaxScanRows, sqlText)
	}

	rows, err := c.db.QueryContext(ctx, queryToRun)
	if err != nil {
		execErr := classifyError(err)
		c.logger.Warn("query failed",
			zap.String("kind", string(execErr.Kind)),
			zap.String("sql", logging.SanitizeSQL(sqlText)))
		return nil, execErr
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, classifyError(err)
	}

	maxRows := opts.MaxRows
	if maxRows <= 0 || maxRows > datasource.MaxScanRows {
		maxRows = datasource.MaxScanRows
	}

	retained := make([][]any, 0)
	count := 0
	for rows.Next() {
		count++
		if count <= maxRows {
			values := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return nil, classifyError(err)
			}
			retained = append(retained, values)
		}
		if count >= datasource.MaxScanRows {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	c.logger.Debug("query executed",
		zap.Int("row_count", count),
		zap.Int("retained", len(retained)))

	return &datasource.ResultSet{
		Columns:  columns,
		Rows:     retained,
		RowCount: count,
	}, nil
}
