package sql

import (
	"strings"

	"github.com/asksql-labs/asksql-engine/pkg/schema"
)

// ValidatedStatement is a statement that passed every check and is safe
// to hand to an executor.
type ValidatedStatement struct {
	SQL  string
	Verb string

	// ReferencedTables lists the schema tables the statement reads,
	// first reference order, lowercase.
	ReferencedTables []string
}

// Validator checks a single candidate statement against the execution
// policy and the live schema.
type Validator struct {
	desc           *schema.Descriptor
	allowMutations bool
}

// NewValidator builds a validator over desc. Mutating verbs are
// rejected unless allowMutations is set.
func NewValidator(desc *schema.Descriptor, allowMutations bool) *Validator {
	return &Validator{desc: desc, allowMutations: allowMutations}
}

// Validate normalizes sqlText and runs the full check sequence:
// single statement, permitted verb, known identifiers.
func (v *Validator) Validate(sqlText string) (*ValidatedStatement, error) {
	normalized := stripTrailingSemicolon(strings.TrimSpace(sqlText))
	if normalized == "" {
		return nil, ErrEmptyStatement
	}

	if semicolonIndexOutsideStrings(normalized) >= 0 {
		return nil, ErrMultipleStatements
	}

	verb, err := mainVerb(normalized)
	if err != nil {
		return nil, err
	}
	if !v.verbAllowed(verb) {
		return nil, &DisallowedVerbError{Verb: verb}
	}

	tables, err := resolveIdentifiers(normalized, v.desc)
	if err != nil {
		return nil, err
	}

	return &ValidatedStatement{
		SQL:              normalized,
		Verb:             verb,
		ReferencedTables: tables,
	}, nil
}

func (v *Validator) verbAllowed(verb string) bool {
	switch verb {
	case "SELECT":
		return true
	case "INSERT", "UPDATE", "DELETE":
		return v.allowMutations
	default:
		return false
	}
}

// mainVerb finds the statement's effective verb. For WITH statements
// the verb is the first statement keyword at parenthesis depth zero
// after the CTE list.
func mainVerb(sqlText string) (string, error) {
	tokens := topLevelTokens(sqlText)
	if len(tokens) == 0 {
		return "", ErrEmptyStatement
	}

	first := strings.ToUpper(tokens[0])
	if first != "WITH" {
		return first, nil
	}

	for _, tok := range tokens[1:] {
		switch upper := strings.ToUpper(tok); upper {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return upper, nil
		}
	}
	return first, nil
}

// topLevelTokens returns the word tokens appearing at parenthesis depth
// zero, outside string literals.
func topLevelTokens(sqlText string) []string {
	var tokens []string
	var current strings.Builder
	depth := 0
	inString := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, ch := range sqlText {
		if inString {
			if ch == '\'' {
				inString = false
			}
			continue
		}
		switch {
		case ch == '\'':
			inString = true
			flush()
		case ch == '(':
			depth++
			flush()
		case ch == ')':
			depth--
			flush()
		case depth > 0:
			// inside parens, not a top-level token
		case isIdentChar(ch):
			current.WriteRune(ch)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isIdentChar(ch rune) bool {
	return ch == '_' || (ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// semicolonIndexOutsideStrings returns the byte index of the first
// semicolon outside string literals, or -1. Both backslash and SQL
// doubled-quote escapes are tolerated.
func semicolonIndexOutsideStrings(sqlText string) int {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for i, char := range sqlText {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return i
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return -1
}

// stripTrailingSemicolon removes a trailing semicolon and surrounding
// whitespace.
func stripTrailingSemicolon(sqlText string) string {
	sqlText = strings.TrimRight(sqlText, " \t\n\r")
	if strings.HasSuffix(sqlText, ";") {
		sqlText = strings.TrimSuffix(sqlText, ";")
		sqlText = strings.TrimRight(sqlText, " \t\n\r")
	}
	return sqlText
}
