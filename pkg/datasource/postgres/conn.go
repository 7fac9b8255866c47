// Package postgres implements the datasource contract over pgx.
package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/logging"
	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// Conn is a pooled PostgreSQL connection implementing datasource.Conn.
type Conn struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ datasource.Conn = (*Conn)(nil)

// Connect opens a connection pool against cfg and verifies it with a
// ping. If logger is nil, a no-op logger is used.
func Connect(ctx context.Context, cfg *Config, logger *zap.Logger) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Conn{pool: pool, logger: logger}, nil
}

// NewConnWithPool wraps an existing pool (for tests or callers that
// manage pooling themselves).
func NewConnWithPool(pool *pgxpool.Pool, logger *zap.Logger) *Conn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conn{pool: pool, logger: logger}
}

// Dialect returns the PostgreSQL dialect marker.
func (c *Conn) Dialect() datasource.Dialect {
	return datasource.DialectPostgres
}

// Ping verifies the pool is still usable.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}

// Close releases the pool.
func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// introspectQuery lists user table columns in declaration order,
// skipping system schemas and views.
const introspectQuery = `
	SELECT c.table_name, c.column_name, c.data_type
	FROM information_schema.columns c
	JOIN information_schema.tables t
	  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
	  AND t.table_type = 'BASE TABLE'
	ORDER BY c.table_name, c.ordinal_position`

// Introspect reads the live schema from information_schema.
func (c *Conn) Introspect(ctx context.Context) (*schema.Descriptor, error) {
	rows, err := c.pool.Query(ctx, introspectQuery)
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

var limitClausePattern = regexp.MustCompile(`(?i)\blimit\s+(\d+|all)\b`)

// hasLimitClause reports whether the statement already bounds its own
// result set.
func hasLimitClause(sqlText string) bool {
	return limitClausePattern.MatchString(sqlText)
}

// Execute runs sqlText under opts. Statements without their own LIMIT
// are wrapped in a bounded subquery so the server stops producing rows
// at the scan ceiling; the scan loop retains at most opts.MaxRows while
// counting everything the statement yielded.
func (c *Conn) Execute(ctx context.Context, sqlText string, opts datasource.ExecOptions) (*datasource.ResultSet, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	queryToRun := sqlText
	if !hasLimitClause(sqlText) {
		queryToRun = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlText, datasource.MaxScanRows)
	}

	rows, err := c.pool.Query(ctx, queryToRun)
	if err != nil {
		execErr := classifyError(err)
		c.logger.Warn("query failed",
			zap.String("kind", string(execErr.Kind)),
			zap.String("sql", logging.SanitizeSQL(sqlText)))
		return nil, execErr
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
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
			values, err := rows.Values()
			if err != nil {
				return nil, classifyError(err)
			}
			row := make([]any, len(values))
			copy(row, values)
			retained = append(retained, row)
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
