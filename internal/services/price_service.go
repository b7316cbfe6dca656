package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const priceCacheTTL = 60 * time.Second

type CoinPrice struct {
	ID        string  `json:"id"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

type MarketSummary struct {
	TotalMarketCap   float64 `json:"total_market_cap"`
	TotalVolume      float64 `json:"total_volume"`
	BTCDominance     float64 `json:"btc_dominance"`
	MarketCapChange  float64 `json:"market_cap_change_24h"`
	ActiveCurrencies int     `json:"active_cryptocurrencies"`
}

type PriceSnapshot struct {
	Currency  string        `json:"currency"`
	Coins     []CoinPrice   `json:"coins"`
	Market    MarketSummary `json:"market"`
	FetchedAt time.Time     `json:"fetched_at"`
	Stale     bool          `json:"stale"`
}

// PriceService reads spot prices and the market summary together and caches the pair for a minute.
type PriceService struct {
	baseURL  string
	coins    []string
	currency string
	client   *http.Client
	clock    Clock

	mu     sync.RWMutex
	cached *PriceSnapshot
}

func NewPriceService(baseURL string, coins []string, currency string, client *http.Client, clock Clock) *PriceService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if clock == nil {
		clock = SystemClock
	}
	return &PriceService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		coins:    coins,
		currency: strings.ToLower(currency),
		client:   client,
		clock:    clock,
	}
}

// Snapshot returns cached data while fresh. On upstream failure the last good snapshot is
// returned marked stale; the error surfaces only when nothing was ever fetched.
func (s *PriceService) Snapshot(ctx context.Context) (*PriceSnapshot, error) {
	now := s.clock.Now()
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil && now.Sub(cached.FetchedAt) < priceCacheTTL {
		return cached, nil
	}

	snap, err := s.fetch(ctx)
	if err != nil {
		if cached != nil {
			log.Warn().Err(err).Time("fetched_at", cached.FetchedAt).Msg("[prices] upstream failed, serving stale")
			stale := *cached
			stale.Stale = true
			return &stale, nil
		}
		return nil, err
	}
	snap.FetchedAt = now

	s.mu.Lock()
	s.cached = snap
	s.mu.Unlock()
	return snap, nil
}

func (s *PriceService) fetch(ctx context.Context) (*PriceSnapshot, error) {
	var (
		prices map[string]map[string]float64
		global struct {
			Data struct {
				ActiveCryptocurrencies int                `json:"active_cryptocurrencies"`
				TotalMarketCap         map[string]float64 `json:"total_market_cap"`
				TotalVolume            map[string]float64 `json:"total_volume"`
				MarketCapPercentage    map[string]float64 `json:"market_cap_percentage"`
				MarketCapChange24hUSD  float64            `json:"market_cap_change_percentage_24h_usd"`
			} `json:"data"`
		}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := url.Values{}
		q.Set("ids", strings.Join(s.coins, ","))
		q.Set("vs_currencies", s.currency)
		q.Set("include_24hr_change", "true")
		return s.getJSON(gctx, "/simple/price?"+q.Encode(), &prices)
	})
	g.Go(func() error {
		return s.getJSON(gctx, "/global", &global)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &PriceSnapshot{Currency: s.currency}
	for _, id := range s.coins {
		p, ok := prices[id]
		if !ok {
			continue
		}
		snap.Coins = append(snap.Coins, CoinPrice{
			ID:        id,
			Price:     p[s.currency],
			Change24h: p[s.currency+"_24h_change"],
		})
	}
	d := global.Data
	snap.Market = MarketSummary{
		TotalMarketCap:   d.TotalMarketCap[s.currency],
		TotalVolume:      d.TotalVolume[s.currency],
		BTCDominance:     d.MarketCapPercentage["btc"],
		MarketCapChange:  d.MarketCapChange24hUSD,
		ActiveCurrencies: d.ActiveCryptocurrencies,
	}
	return snap, nil
}

func (s *PriceService) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
