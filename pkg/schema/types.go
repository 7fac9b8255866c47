package schema

import "strings"

// Type is a dialect-independent column type used in prompt serialization.
// Generated SQL only needs enough type information to pick sensible
// predicates and aggregates, so the mapping is deliberately coarse.
type Type string

const (
	TypeInteger  Type = "integer"
	TypeDecimal  Type = "decimal"
	TypeText     Type = "text"
	TypeBoolean  Type = "boolean"
	TypeDate     Type = "date"
	TypeDatetime Type = "datetime"
	TypeOther    Type = "other"
)

// NormalizeType maps a dialect type name (PostgreSQL or SQL Server) to a
// normalized Type. Unrecognized types map to TypeOther rather than failing:
// an exotic column type should not block introspection of the whole table.
func NormalizeType(dialectType string) Type {
	t := strings.ToLower(strings.TrimSpace(dialectType))

	// Strip length/precision suffixes: varchar(255), numeric(10,2).
	if idx := strings.IndexByte(t, '('); idx != -1 {
		t = strings.TrimSpace(t[:idx])
	}

	switch t {
	case "smallint", "integer", "int", "int2", "int4", "int8", "bigint",
		"serial", "bigserial", "smallserial", "tinyint":
		return TypeInteger
	case "numeric", "decimal", "real", "double precision", "float", "float4",
		"float8", "money", "smallmoney":
		return TypeDecimal
	case "text", "varchar", "character varying", "character", "char", "bpchar",
		"nvarchar", "nchar", "ntext", "uuid", "uniqueidentifier", "name",
		"citext", "xml", "json", "jsonb":
		return TypeText
	case "boolean", "bool", "bit":
		return TypeBoolean
	case "date":
		return TypeDate
	case "timestamp", "timestamptz", "timestamp without time zone",
		"timestamp with time zone", "datetime", "datetime2", "smalldatetime",
		"datetimeoffset", "time", "timetz", "time without time zone",
		"time with time zone":
		return TypeDatetime
	default:
		return TypeOther
	}
}
