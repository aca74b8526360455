package memory

import (
	"context"
	"database/sql"

	"github.com/blackjuly/ultra-mcp/internal/errs"
)

// SetBudget upserts the single budget row for a session atomically.
func (s *Service) SetBudget(ctx context.Context, sessionID string, maxTokens *int, maxCostUSD *float64, maxDurationMS *int64) error {
	tx, err := s.store.DB.BeginTx(ctx, nil)
	if err != nil {
		return &errs.DatabaseError{Op: "memory.SetBudget", Cause: err}
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ultra_budgets WHERE session_id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return &errs.DatabaseError{Op: "memory.SetBudget", Cause: err}
	}

	if exists == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ultra_budgets (session_id, max_tokens, max_cost_usd, max_duration_ms)
			VALUES (?, ?, ?, ?)
		`, sessionID, maxTokens, maxCostUSD, maxDurationMS)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE ultra_budgets SET max_tokens = ?, max_cost_usd = ?, max_duration_ms = ?
			WHERE session_id = ?
		`, maxTokens, maxCostUSD, maxDurationMS, sessionID)
	}
	if err != nil {
		return &errs.DatabaseError{Op: "memory.SetBudget", Cause: err}
	}

	return tx.Commit()
}

// UpdateBudgetUsage atomically adds to the used-counters. Per spec.md §4.4
// this is best-effort: any error is logged and swallowed, never propagated.
func (s *Service) UpdateBudgetUsage(ctx context.Context, sessionID string, deltaTokens int, deltaCostUSD float64, deltaDurationMS int64) {
	_, err := s.store.DB.ExecContext(ctx, `
		UPDATE ultra_budgets
		SET used_tokens = used_tokens + ?, used_cost_usd = used_cost_usd + ?, used_duration_ms = used_duration_ms + ?
		WHERE session_id = ?
	`, deltaTokens, deltaCostUSD, deltaDurationMS, sessionID)
	if err != nil {
		s.logger.Warn("memory: updateBudgetUsage failed, ignoring", "session_id", sessionID, "error", err)
	}
}

// getBudget returns the budget row for a session, or (nil, nil) if none
// exists.
func (s *Service) getBudget(ctx context.Context, sessionID string) (*Budget, error) {
	row := s.store.DB.QueryRowContext(ctx, `
		SELECT session_id, max_tokens, max_cost_usd, max_duration_ms, used_tokens, used_cost_usd, used_duration_ms
		FROM ultra_budgets WHERE session_id = ?
	`, sessionID)

	var b Budget
	var maxTokens sql.NullInt64
	var maxCostUSD sql.NullFloat64
	var maxDurationMS sql.NullInt64

	err := row.Scan(&b.SessionID, &maxTokens, &maxCostUSD, &maxDurationMS, &b.UsedTokens, &b.UsedCostUSD, &b.UsedDurationMS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &errs.DatabaseError{Op: "memory.getBudget", Cause: err}
	}

	if maxTokens.Valid {
		v := int(maxTokens.Int64)
		b.MaxTokens = &v
	}
	if maxCostUSD.Valid {
		v := maxCostUSD.Float64
		b.MaxCostUSD = &v
	}
	if maxDurationMS.Valid {
		v := maxDurationMS.Int64
		b.MaxDurationMS = &v
	}

	return &b, nil
}

// CheckBudgetLimits returns per-dimension flags and an aggregate
// withinLimits. A session with no budget row is always within limits.
func (s *Service) CheckBudgetLimits(ctx context.Context, sessionID string) (*BudgetStatus, error) {
	budget, err := s.getBudget(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return &BudgetStatus{WithinTokenLimit: true, WithinCostLimit: true, WithinDurationLimit: true, WithinLimits: true}, nil
	}

	status := &BudgetStatus{
		WithinTokenLimit:    budget.MaxTokens == nil || budget.UsedTokens <= *budget.MaxTokens,
		WithinCostLimit:     budget.MaxCostUSD == nil || budget.UsedCostUSD <= *budget.MaxCostUSD,
		WithinDurationLimit: budget.MaxDurationMS == nil || budget.UsedDurationMS <= *budget.MaxDurationMS,
	}
	status.WithinLimits = status.WithinTokenLimit && status.WithinCostLimit && status.WithinDurationLimit
	return status, nil
}
