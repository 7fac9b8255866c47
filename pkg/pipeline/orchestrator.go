package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/datasource"
	"github.com/asksql-labs/asksql-engine/pkg/llm"
	"github.com/asksql-labs/asksql-engine/pkg/logging"
	"github.com/asksql-labs/asksql-engine/pkg/retry"
	"github.com/asksql-labs/asksql-engine/pkg/schema"
	sqlcheck "github.com/asksql-labs/asksql-engine/pkg/sql"
)

// state tracks where an attempt is in its lifecycle.
type state int

const (
	stateBuilding state = iota
	stateCompleting
	stateExtracting
	stateValidating
	stateExecuting
	stateSucceeded
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateBuilding:
		return "building"
	case stateCompleting:
		return "completing"
	case stateExtracting:
		return "extracting"
	case stateValidating:
		return "validating"
	case stateExecuting:
		return "executing"
	case stateSucceeded:
		return "succeeded"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Pipeline runs the translate-validate-execute loop for one session.
// It holds no mutable state across Run calls beyond the shared schema
// cache, so a single instance serves concurrent sessions.
type Pipeline struct {
	client llm.CompletionClient
	conn   datasource.Conn
	cache  *schema.Cache
	logger *zap.Logger
}

// New builds a pipeline over a completion client and a datasource
// connection. cache may be nil to introspect on every run.
func New(client llm.CompletionClient, conn datasource.Conn, cache *schema.Cache, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{client: client, conn: conn, cache: cache, logger: logger}
}

// Run translates question into SQL, executes it, and returns the
// result. Failures after the retry budget, or non-retryable ones,
// surface as a *PipelineFailure carrying the full attempt history.
func (p *Pipeline) Run(ctx context.Context, question string, opts Options) (*ExecutionResult, error) {
	opts = opts.withDefaults()

	if hit := sqlcheck.CheckQuestion(question); hit != nil {
		p.logger.Warn("question rejected by injection screen",
			zap.String("fingerprint", hit.Fingerprint))
		return nil, &PipelineFailure{
			Kind:    KindQuestionRejected,
			Message: fmt.Sprintf("question contains a SQL injection pattern (fingerprint %s)", hit.Fingerprint),
		}
	}

	desc, err := p.schemaSnapshot(ctx)
	if err != nil {
		return nil, &PipelineFailure{Kind: KindSchemaUnavailable, Message: err.Error()}
	}

	validator := sqlcheck.NewValidator(desc, opts.AllowMutations)
	systemPrompt := BuildSystemPrompt(p.conn.Dialect(), opts.MaxRows)
	req := TranslationRequest{Question: question, Schema: desc}

	var attempts []AttemptRecord
	for attemptNum := 0; ; attemptNum++ {
		result, record, ok := p.attempt(ctx, validator, systemPrompt, req, opts)
		if ok {
			result.Attempts = attemptNum + 1
			p.logger.Info("translation succeeded",
				zap.Int("attempts", result.Attempts),
				zap.Int("row_count", result.RowCount))
			return result, nil
		}

		attempts = append(attempts, record)
		req.PriorAttempts = attempts

		if !record.FailureKind.retryable() || attemptNum >= opts.RetryBudget {
			p.logger.Warn("translation exhausted",
				zap.String("state", stateExhausted.String()),
				zap.String("kind", string(record.FailureKind)),
				zap.Int("attempts", len(attempts)))
			return nil, &PipelineFailure{
				Kind:     record.FailureKind,
				Message:  record.ErrorDetail,
				Attempts: attempts,
			}
		}

		p.logger.Info("re-attempting translation",
			zap.Int("attempt", attemptNum+1),
			zap.String("kind", string(record.FailureKind)))
	}
}

// schemaSnapshot returns the cached descriptor or introspects a fresh
// one. An empty schema is as fatal as a failed introspection.
func (p *Pipeline) schemaSnapshot(ctx context.Context) (*schema.Descriptor, error) {
	if p.cache != nil {
		if desc := p.cache.Get(); desc != nil {
			return desc, nil
		}
	}

	desc, err := p.conn.Introspect(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	if desc.Empty() {
		return nil, fmt.Errorf("introspection returned zero tables")
	}

	if p.cache != nil {
		p.cache.Set(desc)
	}
	return desc, nil
}

// attempt runs one pass through the state sequence. On failure it
// returns the record to append; ok is true only when execution
// succeeded.
func (p *Pipeline) attempt(ctx context.Context, validator *sqlcheck.Validator, systemPrompt string, req TranslationRequest, opts Options) (*ExecutionResult, AttemptRecord, bool) {
	st := stateBuilding
	p.logger.Debug("attempt state", zap.Stringer("state", st))
	userPrompt := BuildUserPrompt(req)

	st = stateCompleting
	p.logger.Debug("attempt state", zap.Stringer("state", st))
	completion, err := p.complete(ctx, systemPrompt, userPrompt, opts)
	if err != nil {
		return nil, AttemptRecord{
			FailureKind: classifyCompletionError(err),
			ErrorDetail: err.Error(),
		}, false
	}

	st = stateExtracting
	p.logger.Debug("attempt state", zap.Stringer("state", st))
	sqlText, discarded, err := sqlcheck.Extract(completion)
	if discarded > 0 {
		p.logger.Debug("completion held extra statement spans",
			zap.Int("discarded", discarded))
	}
	if err != nil {
		p.logger.Debug("extraction failed",
			zap.String("completion", logging.SanitizeCompletion(completion)))
		return nil, AttemptRecord{
			GeneratedText: completion,
			FailureKind:   KindExtractionFailed,
			ErrorDetail:   err.Error(),
		}, false
	}

	st = stateValidating
	p.logger.Debug("attempt state", zap.Stringer("state", st))
	stmt, err := validator.Validate(sqlText)
	if err != nil {
		return nil, AttemptRecord{
			GeneratedText: completion,
			ExtractedSQL:  sqlText,
			FailureKind:   classifyValidationError(err),
			ErrorDetail:   err.Error(),
		}, false
	}

	st = stateExecuting
	p.logger.Debug("attempt state", zap.Stringer("state", st),
		zap.String("sql", logging.SanitizeSQL(stmt.SQL)))
	rs, err := p.conn.Execute(ctx, stmt.SQL, datasource.ExecOptions{
		MaxRows: opts.MaxRows,
		Timeout: opts.StatementTimeout,
	})
	if err != nil {
		return nil, AttemptRecord{
			GeneratedText: completion,
			ExtractedSQL:  stmt.SQL,
			FailureKind:   classifyExecutionError(err),
			ErrorDetail:   err.Error(),
		}, false
	}

	st = stateSucceeded
	p.logger.Debug("attempt state", zap.Stringer("state", st))
	return &ExecutionResult{
		Columns:  rs.Columns,
		Rows:     rs.Rows,
		RowCount: rs.RowCount,
		SQL:      stmt.SQL,
	}, AttemptRecord{}, true
}

// complete calls the completion client, with optional in-attempt
// backoff on transient failures when TransientRetry is configured.
// Backoff retries do not consume the pipeline budget; only their final
// failure does. Without TransientRetry, a transient failure consumes a
// pipeline attempt like any other, keeping the completion-call bound
// at budget+1.
func (p *Pipeline) complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	cfg := opts.TransientRetry
	if cfg == nil {
		cfg = &retry.Config{}
	}

	var completion string
	err := retry.DoIfRetryable(ctx, cfg, func() error {
		text, err := p.client.Complete(ctx, systemPrompt, userPrompt)
		if err != nil {
			return err
		}
		completion = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return completion, nil
}
