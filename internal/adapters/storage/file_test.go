package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/streakbot/internal/adapters/storage"
	"github.com/alejandrodnm/streakbot/internal/domain"
)

func TestFileStore_MissingFileIsEmptyState(t *testing.T) {
	fs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "nested", "bot_state.json"))
	require.NoError(t, err)

	st, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.OpenBets)
	assert.Equal(t, domain.StateVersion, st.Version)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_state.json")
	fs, err := storage.NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	st := domain.NewState()
	st.OpenBets["BTC"] = makeBet("x", "BTC", 1709287200)
	require.NoError(t, fs.Save(ctx, st))

	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", got.OpenBets["BTC"].ID)

	// No quedan temporales tras el rename
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_LoadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_state.json")
	legacy := `{
  "pending_bets": {
    "BTC_last": {"slug": "btc-updown-15m-1709287200", "direction": "Down", "amount": 4.0, "price": 0.5, "placed_at": "2024-03-01T10:00:05"}
  },
  "martingale": {"BTC": {"direction": "Down", "next_bet": 4.0, "losses_count": 1}},
  "statistics": {"total_profit": -2.0, "total_bets": 1, "wins": 0, "losses": 1, "history": [],
                 "max_loss_streak": 1, "current_loss_streak": 1, "last_6h_report": null, "last_24h_report": null},
  "last_results": {}
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	fs, err := storage.NewFileStore(path)
	require.NoError(t, err)

	st, err := fs.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, st.OpenBets, domain.Asset("BTC"))
	assert.Equal(t, domain.Bucket(1709287200), st.OpenBets["BTC"].Bucket)
	assert.True(t, st.Martingale["BTC"].NextStake.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, 1, st.Statistics.Losses)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	fs, err := storage.NewFileStore(path)
	require.NoError(t, err)

	_, err = fs.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}
