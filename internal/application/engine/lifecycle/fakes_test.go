package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// memStore persiste el estado serializado, como un store real.
type memStore struct {
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(context.Context) (*domain.State, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return domain.DecodeState(m.data)
}

func (m *memStore) Save(_ context.Context, st *domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	b, err := domain.EncodeState(st)
	if err != nil {
		return err
	}
	m.data = b
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) state() *domain.State {
	st, err := domain.DecodeState(m.data)
	if err != nil {
		panic(err)
	}
	return st
}

type outcomeKey struct {
	asset  domain.Asset
	bucket domain.Bucket
}

type fakeOracle struct {
	mu       sync.Mutex
	outcomes map[outcomeKey]domain.MarketOutcome
	errs     map[outcomeKey]error
	calls    map[outcomeKey]int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		outcomes: make(map[outcomeKey]domain.MarketOutcome),
		errs:     make(map[outcomeKey]error),
		calls:    make(map[outcomeKey]int),
	}
}

func (f *fakeOracle) Outcome(_ context.Context, asset domain.Asset, bucket domain.Bucket) (domain.MarketOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := outcomeKey{asset, bucket}
	f.calls[k]++
	if err, ok := f.errs[k]; ok {
		return domain.MarketOutcome{}, err
	}
	m, ok := f.outcomes[k]
	if !ok {
		return domain.MarketOutcome{}, fmt.Errorf("fake: %w", domain.ErrMarketNotFound)
	}
	return m, nil
}

// resolved registra un bucket cerrado con el ganador dado.
func (f *fakeOracle) resolved(asset domain.Asset, bucket domain.Bucket, winner domain.Side) {
	up, down := "0.995", "0.005"
	if winner == domain.SideDown {
		up, down = down, up
	}
	f.open(asset, bucket, up, down)
}

// open registra un mercado en juego con las cotizaciones dadas.
func (f *fakeOracle) open(asset domain.Asset, bucket domain.Bucket, up, down string) {
	f.outcomes[outcomeKey{asset, bucket}] = domain.MarketOutcome{
		Asset:    asset,
		Bucket:   bucket,
		Slug:     fmt.Sprintf("%s-updown-15m-%d", asset.Lower(), int64(bucket)),
		Prices:   [2]decimal.Decimal{decimal.RequireFromString(up), decimal.RequireFromString(down)},
		TokenIDs: [2]string{"tok-up", "tok-down"},
	}
}

type fakeGateway struct {
	orders     []domain.OrderRequest
	err        error
	balance    decimal.Decimal
	balanceErr error
}

func (g *fakeGateway) Submit(_ context.Context, req domain.OrderRequest) (domain.PlacedOrder, error) {
	if g.err != nil {
		return domain.PlacedOrder{}, g.err
	}
	g.orders = append(g.orders, req)
	return domain.PlacedOrder{OrderID: fmt.Sprintf("0xorder%d", len(g.orders)), Status: "live"}, nil
}

func (g *fakeGateway) AvailableBalance(context.Context) (decimal.Decimal, error) {
	return g.balance, g.balanceErr
}

type recordingNotifier struct {
	msgs []string
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.msgs = append(r.msgs, text)
	return r.err
}

type recordingJournal struct {
	opened  []domain.PendingBet
	settled []domain.Settlement
}

func (j *recordingJournal) RecordOpened(_ context.Context, b domain.PendingBet) error {
	j.opened = append(j.opened, b)
	return nil
}

func (j *recordingJournal) RecordSettled(_ context.Context, s domain.Settlement) error {
	j.settled = append(j.settled, s)
	return errors.New("journal down") // no debe afectar al ciclo
}
