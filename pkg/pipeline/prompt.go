package pipeline

import (
	"fmt"
	"strings"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
)

// dialectTitle names the dialect the way the model knows it.
func dialectTitle(d datasource.Dialect) string {
	switch d {
	case datasource.DialectMSSQL:
		return "Microsoft SQL Server"
	default:
		return "PostgreSQL"
	}
}

// limitClauseName is the dialect's row-bounding construct, used in the
// prompt rules.
func limitClauseName(d datasource.Dialect) string {
	if d == datasource.DialectMSSQL {
		return "TOP"
	}
	return "LIMIT"
}

// BuildSystemPrompt frames the task. Deterministic given the dialect
// and row cap.
func BuildSystemPrompt(dialect datasource.Dialect, maxRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are AskSQL, a %s expert. Given a database schema and a question, you answer with a SQL statement.\n", dialectTitle(dialect))
	b.WriteString("Rules:\n")
	b.WriteString("- Reply with exactly one SQL statement and nothing else: no explanation, no markdown, no code fences.\n")
	b.WriteString("- Use only the tables and columns listed in the schema.\n")
	b.WriteString("- Refer to tables by bare name, without a schema or database prefix.\n")
	b.WriteString("- Never query system tables or catalogs.\n")
	fmt.Fprintf(&b, "- Bound the result set with a %s clause of at most %d rows unless the question requires fewer.\n", limitClauseName(dialect), maxRows)
	b.WriteString("- Do not end the statement with a semicolon.\n")
	return b.String()
}

// BuildUserPrompt serializes the schema, the question, and on retry
// every prior attempt with its failure detail as corrective context.
// Deterministic given an identical request.
func BuildUserPrompt(req TranslationRequest) string {
	var b strings.Builder
	b.WriteString("Schema:\n")
	b.WriteString(req.Schema.Format())
	b.WriteString("\n\nQuestion: ")
	b.WriteString(req.Question)

	for i, attempt := range req.PriorAttempts {
		fmt.Fprintf(&b, "\n\nAttempt %d failed.\n", i+1)
		if attempt.ExtractedSQL != "" {
			fmt.Fprintf(&b, "SQL:\n%s\n", attempt.ExtractedSQL)
		} else {
			b.WriteString("No SQL statement could be found in the reply.\n")
		}
		fmt.Fprintf(&b, "Error: %s\n", attempt.ErrorDetail)
		b.WriteString(correctionHint(attempt.FailureKind))
	}

	if len(req.PriorAttempts) > 0 {
		b.WriteString("\nProduce a corrected SQL statement following the same rules.")
	}
	return b.String()
}

// correctionHint steers the next attempt based on what went wrong.
func correctionHint(kind ErrorKind) string {
	switch kind {
	case KindExtractionFailed:
		return "Reply with the SQL statement only.\n"
	case KindMultipleStatements:
		return "Reply with a single statement; do not chain statements with semicolons.\n"
	case KindDisallowedVerb:
		return "Only read-only SELECT statements are allowed.\n"
	case KindUnknownIdentifier:
		return "Use only identifiers that appear in the schema above.\n"
	case KindTimeout:
		return "The query took too long; produce a narrower query that scans less data.\n"
	default:
		return ""
	}
}
