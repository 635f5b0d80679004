package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// StateVersion is the current layout of the persisted state document.
// Version 0 is the JSON file written by the first (pre-Go) release of the bot.
const StateVersion = 1

// RecentOutcome is a resolved bucket remembered by the bot. Once cached, a
// bucket is never queried again, so a resolution can't flip back.
type RecentOutcome struct {
	Bucket Bucket    `json:"bucket"`
	Winner Side      `json:"winner"`
	SeenAt time.Time `json:"seen_at"`
}

// State is the full persisted snapshot, loaded at the start of every run
// and saved after every mutation.
type State struct {
	Version        int                       `json:"version"`
	OpenBets       map[Asset]PendingBet      `json:"open_bets"`
	Martingale     map[Asset]Ladder          `json:"martingale"`
	Statistics     Ledger                    `json:"statistics"`
	RecentOutcomes map[Asset][]RecentOutcome `json:"recent_outcomes"`
}

// NewState returns an empty state at the current version.
func NewState() *State {
	s := &State{Version: StateVersion}
	s.normalize()
	return s
}

func (s *State) normalize() {
	if s.OpenBets == nil {
		s.OpenBets = make(map[Asset]PendingBet)
	}
	if s.Martingale == nil {
		s.Martingale = make(map[Asset]Ladder)
	}
	if s.RecentOutcomes == nil {
		s.RecentOutcomes = make(map[Asset][]RecentOutcome)
	}
	if s.Statistics.LastReports == nil {
		s.Statistics.LastReports = make(map[string]time.Time)
	}
	if s.Statistics.History == nil {
		s.Statistics.History = []HistoryEntry{}
	}
}

// OpenAssets returns the assets with an open bet, sorted for deterministic processing.
func (s *State) OpenAssets() []Asset {
	assets := make([]Asset, 0, len(s.OpenBets))
	for a := range s.OpenBets {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// KnownWinner returns the cached winner of a bucket, if any.
func (s *State) KnownWinner(asset Asset, bucket Bucket) (Side, bool) {
	for _, o := range s.RecentOutcomes[asset] {
		if o.Bucket == bucket {
			return o.Winner, true
		}
	}
	return "", false
}

// RememberOutcome caches a resolved bucket, keeping the newest `limit` entries.
func (s *State) RememberOutcome(asset Asset, bucket Bucket, winner Side, now time.Time, limit int) {
	if _, ok := s.KnownWinner(asset, bucket); ok {
		return
	}
	list := append(s.RecentOutcomes[asset], RecentOutcome{Bucket: bucket, Winner: winner, SeenAt: now})
	sort.Slice(list, func(i, j int) bool { return list[i].Bucket < list[j].Bucket })
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	s.RecentOutcomes[asset] = list
}

// DecodeState parses a persisted document, migrating older layouts to the
// current version. An empty document yields an empty state.
func DecodeState(data []byte) (*State, error) {
	if len(data) == 0 {
		return NewState(), nil
	}

	var probe struct {
		Version     *int            `json:"version"`
		PendingBets json.RawMessage `json:"pending_bets"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("domain.DecodeState: %w: %w", ErrMalformedPayload, err)
	}

	version := 0
	if probe.Version != nil {
		version = *probe.Version
	}

	switch version {
	case 0:
		st, err := migrateLegacy(data)
		if err != nil {
			return nil, fmt.Errorf("domain.DecodeState: migrate v0: %w", err)
		}
		return st, nil
	case StateVersion:
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("domain.DecodeState: %w: %w", ErrMalformedPayload, err)
		}
		st.normalize()
		return &st, nil
	}
	return nil, fmt.Errorf("domain.DecodeState: %w: %d", ErrStateVersion, version)
}

// EncodeState serializes the state at the current version.
func EncodeState(s *State) ([]byte, error) {
	s.Version = StateVersion
	s.normalize()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("domain.EncodeState: %w", err)
	}
	return b, nil
}
