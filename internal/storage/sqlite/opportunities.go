package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hetulpatel/arbscan/internal/markets"
)

// Fixed-width UTC so detected_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const insertOpportunitySQL = `
INSERT INTO arbitrage_opportunities (
	opportunity_id, run_id, market_name,
	polymarket_price, kalshi_price, spread, profit_percentage,
	polymarket_token_id, kalshi_ticker, direction,
	confidence_score, reasoning, detected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertOpportunities appends a batch in one transaction. Rows are never
// merged with earlier passes.
func (s *Store) InsertOpportunities(ctx context.Context, opps []markets.Opportunity) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(opps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertOpportunitySQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, op := range opps {
		_, err := stmt.ExecContext(ctx,
			op.ID,
			nullString(op.RunID),
			op.MarketName,
			op.PolymarketPrice,
			op.KalshiPrice,
			op.Spread,
			op.ProfitPercentage,
			nullString(op.PolymarketTokenID),
			op.KalshiTicker,
			nullString(string(op.Direction)),
			op.Confidence,
			nullString(op.Reasoning),
			op.DetectedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert opportunity %s: %w", op.ID, err)
		}
	}
	return tx.Commit()
}

// ListRecent returns up to limit opportunities, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]markets.Opportunity, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlite store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT opportunity_id, run_id, market_name,
	polymarket_price, kalshi_price, spread, profit_percentage,
	polymarket_token_id, kalshi_ticker, direction,
	confidence_score, reasoning, detected_at
FROM arbitrage_opportunities
ORDER BY detected_at DESC, row_id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	out := make([]markets.Opportunity, 0, limit)
	for rows.Next() {
		var (
			op                                   markets.Opportunity
			runID, tokenID, direction, reasoning sql.NullString
			confidence                           sql.NullFloat64
			detectedAt                           string
		)
		if err := rows.Scan(
			&op.ID, &runID, &op.MarketName,
			&op.PolymarketPrice, &op.KalshiPrice, &op.Spread, &op.ProfitPercentage,
			&tokenID, &op.KalshiTicker, &direction,
			&confidence, &reasoning, &detectedAt,
		); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		op.RunID = runID.String
		op.PolymarketTokenID = tokenID.String
		op.Direction = markets.Direction(direction.String)
		op.Reasoning = reasoning.String
		op.Confidence = confidence.Float64
		if t, err := time.Parse(timeLayout, detectedAt); err == nil {
			op.DetectedAt = t
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
