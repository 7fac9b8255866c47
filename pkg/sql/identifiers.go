package sql

import (
	"regexp"
	"strings"

	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

var (
	fromJoinPattern = regexp.MustCompile(`(?i)\b(from|join)\b`)
	derivedPattern  = regexp.MustCompile(`(?i)\b(from|join)\s*\(`)
	ctePattern      = regexp.MustCompile(`(?i)\b([a-z_]\w*)\s+as\s*\(`)
	aliasPattern    = regexp.MustCompile(`(?i)\bas\s+([a-z_]\w*)`)
	qualifiedRef    = regexp.MustCompile(`\b([a-zA-Z_]\w*)\.([a-zA-Z_]\w*)`)
	wordPattern     = regexp.MustCompile(`[a-zA-Z_]\w*`)
	lineComment     = regexp.MustCompile(`--[^\n]*`)
	blockComment    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLiteral   = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// sqlKeywords are tokens that never name a table or column. The set
// covers clause keywords, operators, date parts, and type names the
// models commonly emit.
var sqlKeywords = map[string]struct{}{}

func init() {
	for _, kw := range []string{
		"select", "from", "where", "join", "inner", "outer", "left", "right",
		"full", "cross", "on", "and", "or", "not", "in", "is", "null", "like",
		"ilike", "between", "exists", "group", "by", "having", "order", "asc",
		"desc", "limit", "offset", "fetch", "first", "next", "rows", "row",
		"only", "top", "distinct", "all", "as", "with", "union", "intersect",
		"except", "case", "when", "then", "else", "end", "insert", "into",
		"values", "update", "set", "delete", "using", "returning", "true",
		"false", "percent", "ties", "nulls", "last", "over", "partition",
		"filter", "within", "lateral", "natural", "any", "some", "escape",
		"interval", "current_date", "current_timestamp", "current_time",
		"year", "month", "day", "quarter", "week", "hour", "minute", "second",
		"dow", "doy", "epoch", "decade", "century", "isodow",
		"int", "integer", "bigint", "smallint", "numeric", "decimal", "real",
		"float", "double", "precision", "text", "varchar", "char", "character",
		"varying", "date", "time", "timestamp", "timestamptz", "boolean",
		"bool", "money", "nvarchar", "datetime", "datetime2", "bit",
	} {
		sqlKeywords[kw] = struct{}{}
	}
}

// resolveIdentifiers checks every table and column reference in the
// statement against the schema and returns the referenced tables in
// first-reference order. Columns of CTEs and derived tables cannot be
// known statically, so when either is present only references
// qualified by a real table are checked.
func resolveIdentifiers(sqlText string, desc *schema.Descriptor) ([]string, error) {
	cleaned := stringLiteral.ReplaceAllString(sqlText, "''")
	cleaned = lineComment.ReplaceAllString(cleaned, " ")
	cleaned = blockComment.ReplaceAllString(cleaned, " ")

	cteNames := map[string]struct{}{}
	if strings.EqualFold(firstWord(cleaned), "with") {
		for _, m := range ctePattern.FindAllStringSubmatch(cleaned, -1) {
			cteNames[strings.ToLower(m[1])] = struct{}{}
		}
	}
	hasDerived := derivedPattern.MatchString(cleaned)

	// aliasTo maps aliases and bare table names to the real table they
	// reference; CTE references map to "".
	aliasTo := map[string]string{}
	var tables []string
	seen := map[string]struct{}{}

	for _, ref := range findTableRefs(cleaned) {
		name := ref.name
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}

		if _, isCTE := cteNames[name]; isCTE {
			aliasTo[name] = ""
			if ref.alias != "" {
				aliasTo[ref.alias] = ""
			}
			continue
		}

		if !desc.HasTable(name) {
			return nil, &UnknownIdentifierError{Kind: IdentifierTable, Name: name}
		}
		aliasTo[name] = name
		if ref.alias != "" {
			aliasTo[ref.alias] = name
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			tables = append(tables, name)
		}
	}

	outputAliases := map[string]struct{}{}
	for _, m := range aliasPattern.FindAllStringSubmatch(cleaned, -1) {
		outputAliases[strings.ToLower(m[1])] = struct{}{}
	}

	strict := len(cteNames) == 0 && !hasDerived

	// Qualified references resolve through the alias map.
	qualified := map[string]struct{}{}
	for _, m := range qualifiedRef.FindAllStringSubmatch(cleaned, -1) {
		qualifier := strings.ToLower(m[1])
		column := strings.ToLower(m[2])
		qualified[qualifier] = struct{}{}
		qualified[column] = struct{}{}

		target, known := aliasTo[qualifier]
		if !known {
			if strict {
				return nil, &UnknownIdentifierError{Kind: IdentifierTable, Name: qualifier}
			}
			continue
		}
		if target == "" {
			continue // CTE, columns unknown
		}
		if !desc.HasColumn(target, column) {
			return nil, &UnknownIdentifierError{Kind: IdentifierColumn, Name: column}
		}
	}

	if strict {
		if err := checkBareColumns(cleaned, desc, tables, aliasTo, outputAliases, qualified); err != nil {
			return nil, err
		}
	}

	return tables, nil
}

// checkBareColumns verifies that every unqualified identifier resolves
// to a column of some referenced table. Keywords, function names,
// aliases, and already-qualified parts are skipped.
func checkBareColumns(cleaned string, desc *schema.Descriptor, tables []string, aliasTo map[string]string, outputAliases, qualified map[string]struct{}) error {
	for _, loc := range wordPattern.FindAllStringIndex(cleaned, -1) {
		word := cleaned[loc[0]:loc[1]]
		lower := strings.ToLower(word)

		if _, ok := sqlKeywords[lower]; ok {
			continue
		}
		if _, ok := aliasTo[lower]; ok {
			continue
		}
		if _, ok := outputAliases[lower]; ok {
			continue
		}
		if _, ok := qualified[lower]; ok {
			continue
		}
		if isFunctionCall(cleaned, loc[1]) {
			continue
		}

		found := false
		for _, table := range tables {
			if desc.HasColumn(table, lower) {
				found = true
				break
			}
		}
		if !found {
			return &UnknownIdentifierError{Kind: IdentifierColumn, Name: lower}
		}
	}
	return nil
}

// isFunctionCall reports whether the token ending at end is immediately
// followed by an opening parenthesis.
func isFunctionCall(text string, end int) bool {
	for _, ch := range text[end:] {
		switch ch {
		case ' ', '\t', '\n', '\r':
			continue
		case '(':
			return true
		default:
			return false
		}
	}
	return false
}

func firstWord(text string) string {
	return wordPattern.FindString(text)
}

type tableRef struct {
	name  string // lowercase, possibly schema-qualified
	alias string // lowercase, "" when absent
}

// findTableRefs scans FROM and JOIN clauses for relation references,
// including comma-separated lists. Derived tables (a parenthesis where
// a relation name would be) are skipped; derivedPattern flags their
// presence separately.
func findTableRefs(cleaned string) []tableRef {
	var refs []tableRef
	for _, loc := range fromJoinPattern.FindAllStringIndex(cleaned, -1) {
		if insideFunctionCall(cleaned, loc[0]) {
			continue // FROM inside EXTRACT, SUBSTRING, and friends
		}
		pos := loc[1]
		for {
			pos = skipSpaces(cleaned, pos)
			if pos >= len(cleaned) || !isIdentStart(cleaned[pos]) {
				break // derived table or end of clause
			}

			start := pos
			for pos < len(cleaned) && (isIdentByte(cleaned[pos]) || cleaned[pos] == '.') {
				pos++
			}
			if next := skipSpaces(cleaned, pos); next < len(cleaned) && cleaned[next] == '(' {
				break // set-returning function call, not a relation
			}
			ref := tableRef{name: strings.ToLower(cleaned[start:pos])}

			// optional alias, possibly introduced by AS
			next, word := peekWord(cleaned, pos)
			if strings.EqualFold(word, "as") {
				pos = next
				next, word = peekWord(cleaned, pos)
			}
			if word != "" {
				if _, kw := sqlKeywords[strings.ToLower(word)]; !kw {
					ref.alias = strings.ToLower(word)
					pos = next
				}
			}
			refs = append(refs, ref)

			pos = skipSpaces(cleaned, pos)
			if pos >= len(cleaned) || cleaned[pos] != ',' {
				break
			}
			pos++
		}
	}
	return refs
}

func skipSpaces(text string, pos int) int {
	for pos < len(text) {
		switch text[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// peekWord reads the next identifier after pos, returning the position
// past it and the word itself ("" when the next token is not a word).
func peekWord(text string, pos int) (int, string) {
	pos = skipSpaces(text, pos)
	if pos >= len(text) || !isIdentStart(text[pos]) {
		return pos, ""
	}
	start := pos
	for pos < len(text) && isIdentByte(text[pos]) {
		pos++
	}
	return pos, text[start:pos]
}

// insideFunctionCall reports whether pos sits inside the argument list
// of a function call, as opposed to a parenthesized subquery. The
// distinction is the token before the opening parenthesis: a function
// name for calls, a keyword or nothing for subqueries.
func insideFunctionCall(text string, pos int) bool {
	var stack []bool
	for i := 0; i < pos && i < len(text); i++ {
		switch text[i] {
		case '(':
			stack = append(stack, opensFunctionArgs(text, i))
		case ')':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return len(stack) > 0 && stack[len(stack)-1]
}

func opensFunctionArgs(text string, parenPos int) bool {
	i := parenPos - 1
	for i >= 0 && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i--
	}
	end := i + 1
	for i >= 0 && isIdentByte(text[i]) {
		i--
	}
	word := strings.ToLower(text[i+1 : end])
	if word == "" {
		return false
	}
	_, kw := sqlKeywords[word]
	return !kw
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
