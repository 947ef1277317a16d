package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const investor = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func newTestRepo(t *testing.T) *PositionRepository {
	t.Helper()
	db, err := New(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPositionRepository(db, zerolog.Nop())
}

func samplePosition(tx, token string, start time.Time) domain.Position {
	return domain.Position{
		TokenID:        token,
		Investor:       investor,
		Principal:      decimal.RequireFromString("50.5"),
		TargetAPY:      decimal.RequireFromString("14.8"),
		StartTime:      start,
		MaturityTime:   start.AddDate(1, 0, 0),
		Status:         domain.StatusActive,
		ContractType:   "PRIVATE_CREDIT",
		TemplateName:   "Infinity Growth Vault",
		StorageLocator: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		TermsHash:      "0xabc",
		TxHash:         tx,
		Network:        "0xaa36a7",
	}
}

// ---------------------------------------------------------------------------
// Save / ListByInvestor
// ---------------------------------------------------------------------------

func TestSaveAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inserted, err := repo.Save(ctx, samplePosition("0xAA01", "1", start))
	require.NoError(t, err)
	assert.True(t, inserted)
	_, err = repo.Save(ctx, samplePosition("0xaa02", "2", start.Add(time.Hour)))
	require.NoError(t, err)

	list, err := repo.ListByInvestor(ctx, investor)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].TokenID, "newest first")

	p := list[1]
	assert.Equal(t, "0xaa01", p.TxHash)
	assert.True(t, p.Principal.Equal(decimal.RequireFromString("50.5")))
	assert.Equal(t, "14.8", p.TargetAPY.String())
	assert.True(t, p.StartTime.Equal(start))
	assert.True(t, p.MaturityTime.Equal(start.AddDate(1, 0, 0)))
	assert.Equal(t, domain.StatusActive, p.Status)
	assert.Equal(t, "Infinity Growth Vault", p.TemplateName)
	assert.Equal(t, "0xaa36a7", p.Network)
}

func TestSaveDuplicateIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Save(ctx, samplePosition("0xbeef", "7", start))
	require.NoError(t, err)

	dup := samplePosition("0xBEEF", "99", start)
	inserted, err := repo.Save(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	list, err := repo.ListByInvestor(ctx, investor)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "7", list[0].TokenID, "first write wins")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListCaseInsensitiveAndEmpty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Save(ctx, samplePosition("0x01", "1", time.Now()))
	require.NoError(t, err)

	list, err := repo.ListByInvestor(ctx, "0XF39FD6E51AAD88F6F4CE6AB8827279CFFFB92266")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repo.ListByInvestor(ctx, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestConcurrentDuplicateSaves(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Now()

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Save(ctx, samplePosition("0xfeed", "5", start))
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	inserted := 0
	for ok := range results {
		if ok {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted)
}

// ---------------------------------------------------------------------------
// DB
// ---------------------------------------------------------------------------

func TestNewFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "infinity.db")
	db, err := New(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, db.Migrate(context.Background()), "migrate is idempotent")

	var mode string
	require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
