// Package postgres loads dilemma content from a JSONB-backed table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"dilemma-arena/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DilemmaSource is a catalog.Source backed by the dilemmas table.
type DilemmaSource struct {
	pool *pgxpool.Pool
}

func NewDilemmaSource(pool *pgxpool.Pool) *DilemmaSource {
	return &DilemmaSource{pool: pool}
}

func (s *DilemmaSource) LoadDilemmas(ctx context.Context) ([]domain.Dilemma, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM dilemmas ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query dilemmas: %w", err)
	}
	defer rows.Close()

	var dilemmas []domain.Dilemma
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan dilemma: %w", err)
		}
		var d domain.Dilemma
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("unmarshal dilemma: %w", err)
		}
		dilemmas = append(dilemmas, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read dilemmas: %w", err)
	}
	return dilemmas, nil
}
