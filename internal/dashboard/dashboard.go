// Package dashboard computes the portfolio view over indexed positions.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Progress returns how far now is between start and maturity, in percent,
// clamped to [0, 100].
func Progress(start, maturity, now time.Time) float64 {
	total := maturity.Sub(start)
	if total <= 0 {
		if now.Before(maturity) {
			return 0
		}
		return 100
	}
	pct := float64(now.Sub(start)) / float64(total) * 100
	return math.Max(0, math.Min(100, pct))
}

// DaysRemaining returns the whole days until maturity, rounded up. Matured
// positions report 0.
func DaysRemaining(maturity, now time.Time) int {
	left := maturity.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(float64(left) / float64(day)))
}

// Row is one rendered position.
type Row struct {
	domain.Position
	Progress      float64
	DaysRemaining int
	Expected      decimal.Decimal
}

// Totals aggregates a portfolio. WeightedAPY is principal-weighted; Value is
// set only when a price source answered.
type Totals struct {
	Count       int
	Active      int
	Completed   int
	Principal   decimal.Decimal
	Expected    decimal.Decimal
	WeightedAPY decimal.Decimal
	Value       *decimal.Decimal
	Currency    string
}

// View is everything the dashboard shows.
type View struct {
	Investor  string
	Rows      []Row
	Totals    Totals
	UpdatedAt time.Time
}

// Build derives rows and totals from positions at now. Positions without a
// status get one from their dates. Rows are ordered by start time, newest
// first.
func Build(investor string, positions []domain.Position, now time.Time) View {
	v := View{Investor: investor, UpdatedAt: now}
	apyWeight := decimal.Zero

	for _, p := range positions {
		if p.Status == "" {
			p.Status = domain.StatusAt(p.StartTime, p.MaturityTime, now)
		}
		r := Row{
			Position:      p,
			Progress:      Progress(p.StartTime, p.MaturityTime, now),
			DaysRemaining: DaysRemaining(p.MaturityTime, now),
			Expected:      domain.ExpectedReturn(p.Principal, p.TargetAPY),
		}
		v.Rows = append(v.Rows, r)

		v.Totals.Count++
		switch p.Status {
		case domain.StatusActive:
			v.Totals.Active++
		case domain.StatusCompleted:
			v.Totals.Completed++
		}
		v.Totals.Principal = v.Totals.Principal.Add(p.Principal)
		v.Totals.Expected = v.Totals.Expected.Add(r.Expected)
		apyWeight = apyWeight.Add(p.Principal.Mul(p.TargetAPY))
	}
	if v.Totals.Principal.IsPositive() {
		v.Totals.WeightedAPY = apyWeight.Div(v.Totals.Principal).Round(2)
	}

	sort.SliceStable(v.Rows, func(i, j int) bool {
		return v.Rows[i].StartTime.After(v.Rows[j].StartTime)
	})
	return v
}

// Source lists an investor's indexed positions.
type Source interface {
	Positions(ctx context.Context, address string) ([]domain.Position, error)
}

// Valuer prices native-currency amounts.
type Valuer interface {
	Value(ctx context.Context, chainName string, amount decimal.Decimal) (decimal.Decimal, error)
	Currency() string
}

// Loader fetches positions and builds views. Every Load is a full refetch.
type Loader struct {
	source Source
	valuer Valuer // optional
	chain  string
	now    func() time.Time
	log    zerolog.Logger
}

// NewLoader creates a loader. valuer may be nil; chainName selects the
// native asset for valuation.
func NewLoader(source Source, valuer Valuer, chainName string, log zerolog.Logger) *Loader {
	return &Loader{
		source: source,
		valuer: valuer,
		chain:  chainName,
		now:    time.Now,
		log:    log.With().Str("component", "dashboard").Logger(),
	}
}

// Load fetches investor's positions and builds the view. A failing price
// source only drops the valuation.
func (l *Loader) Load(ctx context.Context, investor string) (View, error) {
	positions, err := l.source.Positions(ctx, investor)
	if err != nil {
		return View{}, fmt.Errorf("loading investments: %w", err)
	}
	v := Build(investor, positions, l.now())

	if l.valuer != nil && v.Totals.Count > 0 {
		value, err := l.valuer.Value(ctx, l.chain, v.Totals.Principal)
		if err != nil {
			l.log.Debug().Err(err).Msg("portfolio valuation unavailable")
		} else {
			v.Totals.Value = &value
			v.Totals.Currency = l.valuer.Currency()
		}
	}
	return v, nil
}
