package pipeline

import (
	"strings"
	"testing"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
)

func TestBuildSystemPrompt(t *testing.T) {
	pg := BuildSystemPrompt(datasource.DialectPostgres, 1000)
	if !strings.Contains(pg, "PostgreSQL") {
		t.Errorf("postgres prompt missing dialect: %q", pg)
	}
	if !strings.Contains(pg, "LIMIT") {
		t.Errorf("postgres prompt missing LIMIT rule: %q", pg)
	}
	if !strings.Contains(pg, "exactly one SQL statement") {
		t.Errorf("prompt missing single-statement rule: %q", pg)
	}
	if !strings.Contains(pg, "no explanation") {
		t.Errorf("prompt missing no-prose rule: %q", pg)
	}

	ms := BuildSystemPrompt(datasource.DialectMSSQL, 500)
	if !strings.Contains(ms, "Microsoft SQL Server") || !strings.Contains(ms, "TOP") {
		t.Errorf("mssql prompt missing dialect specifics: %q", ms)
	}
}

func TestBuildUserPromptFirstAttempt(t *testing.T) {
	req := TranslationRequest{
		Question: "total sales per store",
		Schema:   retailSchema(),
	}

	got := BuildUserPrompt(req)
	if !strings.Contains(got, "Table sales:") || !strings.Contains(got, "Table store:") {
		t.Errorf("prompt missing schema: %q", got)
	}
	if !strings.Contains(got, "Question: total sales per store") {
		t.Errorf("prompt missing question: %q", got)
	}
	if strings.Contains(got, "failed") {
		t.Errorf("first attempt must not mention failures: %q", got)
	}
}

func TestBuildUserPromptDeterministic(t *testing.T) {
	req := TranslationRequest{
		Question: "total sales per store",
		Schema:   retailSchema(),
		PriorAttempts: []AttemptRecord{
			{
				GeneratedText: "SELECT sold_price2 FROM sales",
				ExtractedSQL:  "SELECT sold_price2 FROM sales",
				FailureKind:   KindUnknownIdentifier,
				ErrorDetail:   `unknown column "sold_price2": not present in the schema`,
			},
		},
	}

	first := BuildUserPrompt(req)
	second := BuildUserPrompt(req)
	if first != second {
		t.Error("BuildUserPrompt is not deterministic for identical input")
	}
}

func TestBuildUserPromptRetryContext(t *testing.T) {
	req := TranslationRequest{
		Question: "q",
		Schema:   retailSchema(),
		PriorAttempts: []AttemptRecord{
			{
				ExtractedSQL: "SELECT sold_price2 FROM sales",
				FailureKind:  KindUnknownIdentifier,
				ErrorDetail:  `unknown column "sold_price2"`,
			},
			{
				FailureKind: KindExtractionFailed,
				ErrorDetail: "no SQL statement found in completion",
			},
		},
	}

	got := BuildUserPrompt(req)
	if !strings.Contains(got, "Attempt 1 failed") || !strings.Contains(got, "Attempt 2 failed") {
		t.Errorf("prompt missing attempt history: %q", got)
	}
	if !strings.Contains(got, "SELECT sold_price2 FROM sales") {
		t.Errorf("prompt missing prior SQL: %q", got)
	}
	if !strings.Contains(got, `unknown column "sold_price2"`) {
		t.Errorf("prompt missing error detail: %q", got)
	}
	if !strings.Contains(got, "corrected SQL statement") {
		t.Errorf("prompt missing correction instruction: %q", got)
	}
}

func TestCorrectionHintTimeout(t *testing.T) {
	hint := correctionHint(KindTimeout)
	if !strings.Contains(hint, "narrower") {
		t.Errorf("timeout hint should ask for a narrower query: %q", hint)
	}
}
