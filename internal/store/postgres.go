package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/settld/settlement-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// uint64 counters are stored as NUMERIC and round-tripped as text because
// BIGINT cannot hold the full unsigned range.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	var result sql.NullString
	if e.Result != nil {
		result = sql.NullString{String: string(*e.Result), Valid: true}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (creator, unique_id, description, deadline, status, result,
		                     yes_token_id, no_token_id, escrow_id, yes_supply, no_supply, created_at)
		 VALUES ($1, $2::NUMERIC, $3, $4, $5, $6, $7, $8, $9, $10::NUMERIC, $11::NUMERIC, $12)`,
		e.Creator, strconv.FormatUint(e.UniqueID, 10), e.Description, e.Deadline,
		e.Status, result,
		e.YesTokenID, e.NoTokenID, e.EscrowID,
		strconv.FormatUint(e.YesSupply, 10), strconv.FormatUint(e.NoSupply, 10),
		e.CreatedAt,
	)
	return err
}

const eventColumns = `creator, unique_id::TEXT, description, deadline, status, result,
	yes_token_id, no_token_id, escrow_id, yes_supply::TEXT, no_supply::TEXT, created_at`

func scanEvent(row interface{ Scan(dest ...any) error }) (*model.Event, error) {
	var e model.Event
	var uniqueID, yesSupply, noSupply string
	var result sql.NullString

	if err := row.Scan(&e.Creator, &uniqueID, &e.Description, &e.Deadline,
		&e.Status, &result,
		&e.YesTokenID, &e.NoTokenID, &e.EscrowID,
		&yesSupply, &noSupply, &e.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if e.UniqueID, err = strconv.ParseUint(uniqueID, 10, 64); err != nil {
		return nil, fmt.Errorf("parse unique_id: %w", err)
	}
	if e.YesSupply, err = strconv.ParseUint(yesSupply, 10, 64); err != nil {
		return nil, fmt.Errorf("parse yes_supply: %w", err)
	}
	if e.NoSupply, err = strconv.ParseUint(noSupply, 10, 64); err != nil {
		return nil, fmt.Errorf("parse no_supply: %w", err)
	}
	if result.Valid {
		r := model.Outcome(result.String)
		e.Result = &r
	}
	return &e, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, creator string, uniqueID uint64) (*model.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE creator = $1 AND unique_id = $2::NUMERIC`,
		creator, strconv.FormatUint(uniqueID, 10))
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", model.EventKey(creator, uniqueID), ErrNotFound)
		}
		return nil, fmt.Errorf("get event %s: %w", model.EventKey(creator, uniqueID), err)
	}
	return e, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) UpdateEventSupplies(ctx context.Context, creator string, uniqueID uint64, yesSupply, noSupply uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events
		 SET yes_supply = $3::NUMERIC, no_supply = $4::NUMERIC
		 WHERE creator = $1 AND unique_id = $2::NUMERIC AND status = 'active'`,
		creator, strconv.FormatUint(uniqueID, 10),
		strconv.FormatUint(yesSupply, 10), strconv.FormatUint(noSupply, 10),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %s not active: %w", model.EventKey(creator, uniqueID), ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ResolveEvent(ctx context.Context, creator string, uniqueID uint64, result model.Outcome) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events
		 SET status = 'resolved', result = $3
		 WHERE creator = $1 AND unique_id = $2::NUMERIC AND status = 'active'`,
		creator, strconv.FormatUint(uniqueID, 10), string(result),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event %s not active: %w", model.EventKey(creator, uniqueID), ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InitTreasury(ctx context.Context, t *model.Treasury) (*model.Treasury, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO treasury (singleton, authority, account_id, total_fees, created_at)
		 VALUES (TRUE, $1, $2, $3::NUMERIC, $4)
		 ON CONFLICT (singleton) DO NOTHING`,
		t.Authority, t.AccountID, strconv.FormatUint(t.TotalFees, 10), t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s.GetTreasury(ctx)
}

func (s *PostgresStore) GetTreasury(ctx context.Context) (*model.Treasury, error) {
	var t model.Treasury
	var totalFees string

	err := s.pool.QueryRow(ctx,
		`SELECT authority, account_id, total_fees::TEXT, created_at FROM treasury WHERE singleton`).
		Scan(&t.Authority, &t.AccountID, &totalFees, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("treasury: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get treasury: %w", err)
	}
	if t.TotalFees, err = strconv.ParseUint(totalFees, 10, 64); err != nil {
		return nil, fmt.Errorf("parse total_fees: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) UpdateTreasuryFees(ctx context.Context, totalFees uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE treasury SET total_fees = $1::NUMERIC WHERE singleton`,
		strconv.FormatUint(totalFees, 10),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("treasury: %w", ErrNotFound)
	}
	return nil
}
