// Package tracker implements the Request Tracker described in spec.md
// §4.2: every outbound request gets a record from Start through Complete
// or Fail, persisted to the shared sqlite store.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blackjuly/ultra-mcp/internal/errs"
	"github.com/blackjuly/ultra-mcp/internal/pricing"
	"github.com/blackjuly/ultra-mcp/internal/store"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ultra_request_duration_seconds",
	Help:    "Duration of tracked upstream requests, labeled by provider/model/status.",
	Buckets: prometheus.DefBuckets,
}, []string{"provider", "model", "status"})

// Status values a Record can hold.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Record mirrors one row of ultra_request_logs.
type Record struct {
	ID              string
	StartedAt       time.Time
	EndedAt         *time.Time
	Provider        string
	Model           string
	ToolName        string
	RequestPayload  string
	Status          string
	InputTokens     int
	OutputTokens    int
	TotalTokens     int
	CostUSD         float64
	DurationMS      int64
	FinishReason    string
	ResponsePayload string
	ErrorMessage    string
}

// Tracker persists Record lifecycles to the shared store.
type Tracker struct {
	store   *store.Store
	pricing *pricing.Service
	logger  *slog.Logger
}

// New constructs a Tracker. pricer may be nil, in which case Complete never
// attempts cost resolution and leaves CostUSD at zero.
func New(s *store.Store, pricer *pricing.Service, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: s, pricing: pricer, logger: logger}
}

// Start inserts a pending record and returns its ID, grounded on the
// reference repo's AddRequestLog — one INSERT per call, no RETURNING since
// modernc.org/sqlite's driver doesn't support it.
func (t *Tracker) Start(ctx context.Context, provider, model, toolName, requestPayload string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := t.store.DB.ExecContext(ctx, `
		INSERT INTO ultra_request_logs (
			id, started_at, provider, model, tool_name, request_payload, status
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, now, provider, model, toolName, requestPayload, StatusPending)
	if err != nil {
		return "", &errs.DatabaseError{Op: "tracker.Start", Cause: err}
	}

	return id, nil
}

// Complete marks a record finished successfully, resolving its cost via the
// pricing service when one is configured. Per spec.md §4.2, a pricing
// lookup failure must not fail the request: the record still completes,
// with CostUSD left at zero.
func (t *Tracker) Complete(ctx context.Context, id string, inputTokens, outputTokens int, finishReason, responsePayload string) (*Record, error) {
	rec, err := t.get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	totalTokens := inputTokens + outputTokens

	var costUSD float64
	if t.pricing != nil {
		result, priceErr := t.pricing.Calculate(ctx, rec.Model, inputTokens, outputTokens)
		if priceErr != nil {
			t.logger.Warn("tracker: cost resolution failed, completing with zero cost",
				"request_id", id, "model", rec.Model, "error", priceErr)
		} else {
			costUSD = result.TotalCost
		}
	}

	durationMS := now.Sub(rec.StartedAt).Milliseconds()

	_, err = t.store.DB.ExecContext(ctx, `
		UPDATE ultra_request_logs
		SET ended_at = ?, status = ?, input_tokens = ?, output_tokens = ?,
		    total_tokens = ?, cost_usd = ?, duration_ms = ?, finish_reason = ?,
		    response_payload = ?
		WHERE id = ?
	`, now, StatusCompleted, inputTokens, outputTokens, totalTokens, costUSD, durationMS, finishReason, responsePayload, id)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "tracker.Complete", Cause: err}
	}

	requestDuration.WithLabelValues(rec.Provider, rec.Model, StatusCompleted).Observe(float64(durationMS) / 1000)

	rec.EndedAt = &now
	rec.Status = StatusCompleted
	rec.InputTokens, rec.OutputTokens, rec.TotalTokens = inputTokens, outputTokens, totalTokens
	rec.CostUSD = costUSD
	rec.DurationMS = durationMS
	rec.FinishReason = finishReason
	rec.ResponsePayload = responsePayload
	return rec, nil
}

// Fail marks a record finished unsuccessfully. status should be
// StatusFailed or StatusCanceled.
func (t *Tracker) Fail(ctx context.Context, id, status, errMessage string) (*Record, error) {
	rec, err := t.get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	durationMS := now.Sub(rec.StartedAt).Milliseconds()

	_, err = t.store.DB.ExecContext(ctx, `
		UPDATE ultra_request_logs
		SET ended_at = ?, status = ?, duration_ms = ?, error_message = ?
		WHERE id = ?
	`, now, status, durationMS, errMessage, id)
	if err != nil {
		return nil, &errs.DatabaseError{Op: "tracker.Fail", Cause: err}
	}

	requestDuration.WithLabelValues(rec.Provider, rec.Model, status).Observe(float64(durationMS) / 1000)

	rec.EndedAt = &now
	rec.Status = status
	rec.DurationMS = durationMS
	rec.ErrorMessage = errMessage
	return rec, nil
}

// Get fetches a record by ID.
func (t *Tracker) Get(ctx context.Context, id string) (*Record, error) {
	return t.get(ctx, id)
}

func (t *Tracker) get(ctx context.Context, id string) (*Record, error) {
	row := t.store.DB.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, provider, model, tool_name, request_payload,
		       status, input_tokens, output_tokens, total_tokens, cost_usd,
		       duration_ms, finish_reason, response_payload, error_message
		FROM ultra_request_logs WHERE id = ?
	`, id)

	var rec Record
	var endedAt sql.NullTime
	var toolName, finishReason, responsePayload, errMessage sql.NullString
	var inputTokens, outputTokens, totalTokens, durationMS sql.NullInt64
	var costUSD sql.NullFloat64

	err := row.Scan(&rec.ID, &rec.StartedAt, &endedAt, &rec.Provider, &rec.Model, &toolName,
		&rec.RequestPayload, &rec.Status, &inputTokens, &outputTokens, &totalTokens, &costUSD,
		&durationMS, &finishReason, &responsePayload, &errMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ultra-mcp: request record %s not found", id)
	}
	if err != nil {
		return nil, &errs.DatabaseError{Op: "tracker.get", Cause: err}
	}

	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	rec.ToolName = toolName.String
	rec.FinishReason = finishReason.String
	rec.ResponsePayload = responsePayload.String
	rec.ErrorMessage = errMessage.String
	rec.InputTokens = int(inputTokens.Int64)
	rec.OutputTokens = int(outputTokens.Int64)
	rec.TotalTokens = int(totalTokens.Int64)
	rec.CostUSD = costUSD.Float64
	rec.DurationMS = durationMS.Int64

	return &rec, nil
}
