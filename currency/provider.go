package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// refreshInterval is how long a fetched table is considered fresh; the
// external source is consulted at most this often.
const refreshInterval = 24 * time.Hour

// Provider owns the current rate table and its refresh lifecycle. Callers
// take an immutable Snapshot per computation; nothing here mutates shared
// state behind their back. Refresh absorbs every failure: stale or fallback
// rates are always better than a failed statistics run.
type Provider struct {
	mu          sync.Mutex
	rates       Rates
	lastAttempt time.Time

	url    string
	client *http.Client
	cache  *Cache
	log    zerolog.Logger
}

// NewProvider seeds the provider with the hardcoded fallback table. cache is
// optional; url empty disables network refresh entirely (fallback-only mode).
func NewProvider(url string, cache *Cache, log zerolog.Logger) *Provider {
	return &Provider{
		rates:  Fallback(),
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  cache,
		log:    log.With().Str("component", "rates").Logger(),
	}
}

// Snapshot returns an independent copy of the current table.
func (p *Provider) Snapshot() Rates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rates.Clone()
}

// Converter returns a converter over the current snapshot.
func (p *Provider) Converter() *Converter {
	return NewConverter(p.Snapshot())
}

// Refresh updates the table from the persisted cache or the external source,
// at most once per 24 hours, and returns a snapshot. It never returns an
// error: a failed fetch leaves the previous table in place.
func (p *Provider) Refresh(ctx context.Context) Rates {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastAttempt) < refreshInterval {
		return p.rates.Clone()
	}
	p.lastAttempt = time.Now()

	// A fresh enough persisted table spares the network round trip.
	if p.cache != nil {
		if cached, fetchedAt, err := p.cache.Load(); err == nil && time.Since(fetchedAt) < refreshInterval {
			p.adopt(cached)
			p.log.Debug().Time("fetched_at", fetchedAt).Msg("using cached rates")
			return p.rates.Clone()
		}
	}

	if p.url == "" {
		return p.rates.Clone()
	}

	fetched, err := p.fetch(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("rate fetch failed, keeping previous rates")
		return p.rates.Clone()
	}

	p.adopt(fetched)
	if p.cache != nil {
		if err := p.cache.Store(p.rates, time.Now()); err != nil {
			p.log.Warn().Err(err).Msg("failed to persist rates")
		}
	}
	p.log.Info().Int("count", len(p.rates)).Msg("refreshed rates")
	return p.rates.Clone()
}

// adopt overlays fetched rates on the current table and re-applies the
// synthetic pegs the source does not know about.
func (p *Provider) adopt(fetched Rates) {
	next := p.rates.Clone()
	for code, rate := range fetched {
		if rate != 0 {
			next[code] = rate
		}
	}
	applyPegs(next)
	p.rates = next
}

func (p *Provider) fetch(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var body struct {
		Rates Rates `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rate source returned no rates")
	}
	return body.Rates, nil
}
