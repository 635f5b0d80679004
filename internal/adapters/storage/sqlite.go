package storage

// sqlite.go: estado + diario de apuestas en SQLite (pure Go, sin CGo).
//
// Estrategia:
//   - `state`: una sola fila con el documento JSON versionado. Cada Save la
//     reemplaza entera con un UPSERT.
//   - `bets`: una fila por apuesta (UPSERT por id). Se inserta al abrir y se
//     completa al liquidar. Es auditoría: el bot nunca decide leyendo de aquí.
//   - Prune automático al arrancar: apuestas liquidadas de más de 180 días.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS state (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    version    INTEGER  NOT NULL,
    document   TEXT     NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bets (
    id          TEXT PRIMARY KEY,
    asset       TEXT     NOT NULL,
    bucket      INTEGER  NOT NULL,
    slug        TEXT     NOT NULL,
    side        TEXT     NOT NULL,
    stake       TEXT     NOT NULL,
    entry_price TEXT     NOT NULL,
    order_id    TEXT,
    paper       INTEGER  NOT NULL DEFAULT 0,
    opened_at   DATETIME NOT NULL,
    result      TEXT,
    winner      TEXT,
    profit      TEXT,
    settled_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_bets_opened  ON bets(opened_at DESC);
CREATE INDEX IF NOT EXISTS idx_bets_asset   ON bets(asset, bucket);
`

const retentionBets = 180 * 24 * time.Hour

// SQLiteStorage implementa ports.StateStore y ports.BetJournal.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia apuestas antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// Load implementa ports.StateStore. Sin fila devuelve un estado vacío.
func (s *SQLiteStorage) Load(ctx context.Context) (*domain.State, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM state WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.Load: %w", err)
	}

	st, err := domain.DecodeState([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("storage.Load: %w", err)
	}
	return st, nil
}

// Save implementa ports.StateStore.
func (s *SQLiteStorage) Save(ctx context.Context, st *domain.State) error {
	doc, err := domain.EncodeState(st)
	if err != nil {
		return fmt.Errorf("storage.Save: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO state (id, version, document, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version    = excluded.version,
			document   = excluded.document,
			updated_at = excluded.updated_at`,
		st.Version, string(doc), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("storage.Save: upsert state: %w", err)
	}
	return nil
}

// RecordOpened implementa ports.BetJournal.
func (s *SQLiteStorage) RecordOpened(ctx context.Context, bet domain.PendingBet) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO bets (id, asset, bucket, slug, side, stake, entry_price, order_id, paper, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		bet.ID, string(bet.Asset), int64(bet.Bucket), bet.Slug, string(bet.Side),
		bet.Stake.String(), bet.EntryPrice.String(), bet.OrderID, boolToInt(bet.Paper), bet.OpenedAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.RecordOpened: %w", err)
	}
	return nil
}

// RecordSettled implementa ports.BetJournal. Si la apertura no quedó
// registrada (p.ej. estado migrado), inserta la fila completa.
func (s *SQLiteStorage) RecordSettled(ctx context.Context, st domain.Settlement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.RecordSettled: begin tx: %w", err)
	}
	defer tx.Rollback()

	b := st.Bet
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets (id, asset, bucket, slug, side, stake, entry_price, order_id, paper, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		b.ID, string(b.Asset), int64(b.Bucket), b.Slug, string(b.Side),
		b.Stake.String(), b.EntryPrice.String(), b.OrderID, boolToInt(b.Paper), b.OpenedAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.RecordSettled: insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bets SET result = ?, winner = ?, profit = ?, settled_at = ? WHERE id = ?`,
		string(st.Result), string(st.Winner), st.Profit.String(), st.Settled.UTC(), b.ID,
	); err != nil {
		return fmt.Errorf("storage.RecordSettled: update: %w", err)
	}
	return tx.Commit()
}

// RecentBets devuelve las últimas `limit` apuestas, más recientes primero.
// Las apuestas aún abiertas vienen con Result vacío y Settled a cero.
func (s *SQLiteStorage) RecentBets(ctx context.Context, limit int) ([]domain.Settlement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asset, bucket, slug, side, stake, entry_price, COALESCE(order_id, ''), paper, opened_at,
		       COALESCE(result, ''), COALESCE(winner, ''), COALESCE(profit, '0'), settled_at
		FROM bets
		ORDER BY opened_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentBets: %w", err)
	}
	defer rows.Close()

	var out []domain.Settlement
	for rows.Next() {
		var (
			r                        domain.Settlement
			asset, side, result, win string
			stake, entry, profit     string
			bucket                   int64
			paper                    int
			settled                  sql.NullTime
		)
		if err := rows.Scan(&r.Bet.ID, &asset, &bucket, &r.Bet.Slug, &side, &stake, &entry,
			&r.Bet.OrderID, &paper, &r.Bet.OpenedAt, &result, &win, &profit, &settled); err != nil {
			return nil, fmt.Errorf("storage.RecentBets: scan: %w", err)
		}
		r.Bet.Asset = domain.Asset(asset)
		r.Bet.Bucket = domain.Bucket(bucket)
		r.Bet.Side = domain.Side(side)
		r.Bet.Stake, _ = decimal.NewFromString(stake)
		r.Bet.EntryPrice, _ = decimal.NewFromString(entry)
		r.Bet.Paper = paper == 1
		r.Result = domain.BetResult(result)
		r.Winner = domain.Side(win)
		r.Profit, _ = decimal.NewFromString(profit)
		if settled.Valid {
			r.Settled = settled.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina apuestas liquidadas antiguas para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionBets)
	s.db.ExecContext(ctx, `DELETE FROM bets WHERE settled_at IS NOT NULL AND settled_at < ?`, cutoff)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
