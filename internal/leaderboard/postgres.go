package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"versequiz/internal/domain"
)

// PostgresStore persists wins as an append-only table and ranks at read time.
//
// Expected schema:
//
//	CREATE TABLE wins (
//	    player_id    TEXT        NOT NULL,
//	    display_name TEXT        NOT NULL,
//	    difficulty   TEXT        NOT NULL,
//	    create_time  TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AppendWin(ctx context.Context, playerID, displayName string, d domain.Difficulty) error {
	const stmt = `INSERT INTO wins (player_id, display_name, difficulty, create_time) VALUES ($1, $2, $3, $4);`

	if _, err := s.db.Exec(ctx, stmt, playerID, displayName, string(d), time.Now()); err != nil {
		return fmt.Errorf("insert win: %w", err)
	}
	return nil
}

func (s *PostgresStore) Fetch(ctx context.Context) (domain.Leaderboard, error) {
	const stmt = `
SELECT difficulty, player_id, MAX(display_name) AS display_name, COUNT(*) AS wins
FROM wins
GROUP BY difficulty, player_id
ORDER BY difficulty, wins DESC, MIN(create_time) ASC;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("query wins: %w", err)
	}

	type row struct {
		difficulty string
		entry      domain.LeaderboardEntry
	}

	collected, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (row, error) {
		var out row
		if err := r.Scan(&out.difficulty, &out.entry.PlayerID, &out.entry.DisplayName, &out.entry.Wins); err != nil {
			return row{}, err
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect wins: %w", err)
	}

	lb := make(domain.Leaderboard)
	for _, r := range collected {
		d := domain.Difficulty(r.difficulty)
		lb[d] = append(lb[d], r.entry)
	}
	return lb, nil
}
