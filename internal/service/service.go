// Package service turns a coin id or an explicit market list into a finished
// scan: listings, per-exchange results, summary and an optional run log entry.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgescan/internal/listing"
	"tgescan/internal/logger"
	"tgescan/internal/report"
	"tgescan/internal/scan"
	"tgescan/internal/store/runlog"
)

var (
	// ErrNoInput is returned when no coin id, symbol or markets are given.
	ErrNoInput = errors.New("coin id, symbol or markets required")
	// ErrNoMatch means a symbol search found no project.
	ErrNoMatch = errors.New("no project matches symbol")
	// ErrAmbiguousSymbol means several projects share the ticker; the caller
	// has to pick one by coin id.
	ErrAmbiguousSymbol = errors.New("symbol matches several projects")
)

// CoinSource 提供 CoinGecko 风格的币种详情与代码搜索。
type CoinSource interface {
	Coin(ctx context.Context, id string) (listing.Coin, error)
	Search(ctx context.Context, symbol string) ([]listing.Match, error)
}

type Runner interface {
	Run(ctx context.Context, req scan.Request) []scan.Result
}

type RunStore interface {
	Save(ctx context.Context, e runlog.Entry) (string, error)
}

// Input describes one scan. Markets take precedence over CoinID; an explicit
// ExpectedTGE overrides whatever the coin document implies.
type Input struct {
	CoinID      string            `json:"coin_id,omitempty"`
	Symbol      string            `json:"symbol,omitempty"`
	Markets     []listing.Listing `json:"markets,omitempty"`
	ExpectedTGE *int64            `json:"expected_tge_ms,omitempty"`
}

type Report struct {
	RunID       string         `json:"run_id,omitempty"`
	Coin        string         `json:"coin,omitempty"`
	Source      string         `json:"source"`
	ExpectedTGE *int64         `json:"expected_tge_ms,omitempty"`
	Listings    int            `json:"listings"`
	Results     []scan.Result  `json:"results"`
	Summary     report.Summary `json:"summary"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
}

type Options struct {
	Coins    CoinSource
	Runner   Runner
	Runs     RunStore
	Aliases  map[string]string
	Disabled map[string]string
}

type Service struct {
	coins    CoinSource
	runner   Runner
	runs     RunStore
	aliases  map[string]string
	disabled map[string]string
}

func New(opts Options) (*Service, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("service requires a scan runner")
	}
	aliases := opts.Aliases
	if aliases == nil {
		aliases = listing.DefaultAliases()
	}
	return &Service{
		coins:    opts.Coins,
		runner:   opts.Runner,
		runs:     opts.Runs,
		aliases:  aliases,
		disabled: opts.Disabled,
	}, nil
}

// Listings resolves the input into per-exchange listings and the expected TGE.
func (s *Service) Listings(ctx context.Context, in Input) ([]listing.Listing, *int64, string, error) {
	if len(in.Markets) > 0 {
		return listing.Attach(in.Markets, s.aliases, s.disabled), in.ExpectedTGE, "markets", nil
	}
	id := strings.TrimSpace(in.CoinID)
	if id == "" && strings.TrimSpace(in.Symbol) == "" {
		return nil, nil, "", ErrNoInput
	}
	if s.coins == nil {
		return nil, nil, "", fmt.Errorf("coin lookup not configured")
	}
	if id == "" {
		hit, err := s.ResolveSymbol(ctx, in.Symbol)
		if err != nil {
			return nil, nil, "", err
		}
		id = hit.ID
	}
	coin, err := s.coins.Coin(ctx, id)
	if err != nil {
		return nil, nil, "", err
	}
	listings := listing.BuildListings(coin.Tickers, s.aliases, s.disabled)
	expected := in.ExpectedTGE
	if expected == nil {
		expected = listing.ExpectedTGE(coin)
	}
	logger.Infof("coingecko %s: %d tickers, %d exchanges", id, len(coin.Tickers), len(listings))
	return listings, expected, "coingecko", nil
}

// ResolveSymbol searches CoinGecko for a ticker. Exactly one project must
// match; ambiguous results list the candidates in the error.
func (s *Service) ResolveSymbol(ctx context.Context, symbol string) (listing.Match, error) {
	if s.coins == nil {
		return listing.Match{}, fmt.Errorf("coin lookup not configured")
	}
	hits, err := s.coins.Search(ctx, symbol)
	if err != nil {
		return listing.Match{}, err
	}
	switch len(hits) {
	case 0:
		return listing.Match{}, fmt.Errorf("%w: %s", ErrNoMatch, symbol)
	case 1:
		logger.Infof("symbol %s resolved to %s (%s)", symbol, hits[0].ID, hits[0].Name)
		return hits[0], nil
	}
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, fmt.Sprintf("%s (%s)", h.ID, h.Name))
	}
	return listing.Match{}, fmt.Errorf("%w %s: %s", ErrAmbiguousSymbol, symbol, strings.Join(names, ", "))
}

// Scan runs every listing sequentially and archives the summary when a run
// store is configured. A failed archive only logs; the report is still
// returned.
func (s *Service) Scan(ctx context.Context, in Input) (Report, error) {
	started := time.Now().UTC()
	listings, expected, source, err := s.Listings(ctx, in)
	if err != nil {
		return Report{}, err
	}
	results := s.runner.Run(ctx, scan.Request{Listings: listings, ExpectedTGE: expected})
	rep := Report{
		Coin:        coinName(in),
		Source:      source,
		ExpectedTGE: expected,
		Listings:    len(listings),
		Results:     results,
		Summary:     report.Summarize(results),
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
	if s.runs != nil {
		entry := runlog.Entry{
			Coin:          rep.Coin,
			Source:        rep.Source,
			ExpectedTGE:   rep.ExpectedTGE,
			StartedAt:     rep.StartedAt,
			FinishedAt:    rep.FinishedAt,
			Results:       results,
			TotalQuoteVol: rep.Summary.TotalQuoteVol,
		}
		if a := rep.Summary.Anchor; a != nil {
			entry.AnchorName = a.ExchangeName
			entry.AnchorTime = a.TGETime
		}
		id, err := s.runs.Save(ctx, entry)
		if err != nil {
			logger.Warnf("run log save failed: %v", err)
		} else {
			rep.RunID = id
		}
	}
	return rep, nil
}

func coinName(in Input) string {
	if id := strings.TrimSpace(in.CoinID); id != "" {
		return id
	}
	return strings.ToUpper(strings.TrimSpace(in.Symbol))
}
