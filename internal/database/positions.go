package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// PositionRepository stores minted positions keyed by transaction hash.
type PositionRepository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewPositionRepository creates a repository over db.
func NewPositionRepository(db *DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db.Conn(),
		now: time.Now,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

// Save records p. A position whose tx hash is already stored is left
// untouched and reported with inserted=false.
func (r *PositionRepository) Save(ctx context.Context, p domain.Position) (inserted bool, err error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO positions (
			tx_hash, token_id, investor, principal, target_apy, start_time, maturity_time,
			status, contract_type, template_name, storage_locator, terms_hash, network, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO NOTHING`,
		strings.ToLower(p.TxHash),
		p.TokenID,
		strings.ToLower(p.Investor),
		p.Principal.String(),
		p.TargetAPY.String(),
		formatTime(p.StartTime),
		formatTime(p.MaturityTime),
		string(p.Status),
		p.ContractType,
		p.TemplateName,
		p.StorageLocator,
		p.TermsHash,
		p.Network,
		formatTime(r.now()),
	)
	if err != nil {
		return false, fmt.Errorf("saving position %s: %w", p.TxHash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		r.log.Debug().Str("tx", p.TxHash).Msg("position already recorded")
		return false, nil
	}
	r.log.Info().Str("tx", p.TxHash).Str("token_id", p.TokenID).Str("investor", p.Investor).Msg("position recorded")
	return true, nil
}

// ListByInvestor returns investor's positions, newest first. Matching is
// case-insensitive.
func (r *PositionRepository) ListByInvestor(ctx context.Context, investor string) ([]domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tx_hash, token_id, investor, principal, target_apy, start_time, maturity_time,
		       status, contract_type, template_name, storage_locator, terms_hash, network
		FROM positions
		WHERE investor = ?
		ORDER BY start_time DESC, tx_hash`, strings.ToLower(investor))
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}
	defer rows.Close()

	out := []domain.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of stored positions.
func (r *PositionRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n)
	return n, err
}

func scanPosition(rows *sql.Rows) (domain.Position, error) {
	var (
		p                            domain.Position
		principal, apy, start, matur string
		status                       string
	)
	err := rows.Scan(&p.TxHash, &p.TokenID, &p.Investor, &principal, &apy, &start, &matur,
		&status, &p.ContractType, &p.TemplateName, &p.StorageLocator, &p.TermsHash, &p.Network)
	if err != nil {
		return p, fmt.Errorf("scanning position: %w", err)
	}
	p.Status = domain.PositionStatus(status)
	if p.Principal, err = decimal.NewFromString(principal); err != nil {
		return p, fmt.Errorf("position %s principal: %w", p.TxHash, err)
	}
	if p.TargetAPY, err = decimal.NewFromString(apy); err != nil {
		return p, fmt.Errorf("position %s apy: %w", p.TxHash, err)
	}
	if p.StartTime, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return p, fmt.Errorf("position %s start: %w", p.TxHash, err)
	}
	if p.MaturityTime, err = time.Parse(time.RFC3339Nano, matur); err != nil {
		return p, fmt.Errorf("position %s maturity: %w", p.TxHash, err)
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
