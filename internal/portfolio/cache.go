package portfolio

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/metrics"
)

// HoldingCache memoizes replayed holdings per (user, symbol, version). A
// ledger mutation bumps the version, so stale entries are simply never read
// again and age out.
type HoldingCache struct {
	c *ristretto.Cache
}

func NewHoldingCache(maxEntries int64) (*HoldingCache, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// cost counts entries, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("holding cache: %w", err)
	}
	return &HoldingCache{c: c}, nil
}

func holdingKey(userID uuid.UUID, symbol string, version int64) string {
	return fmt.Sprintf("%s:%s:%d", userID, symbol, version)
}

func (hc *HoldingCache) Get(userID uuid.UUID, symbol string, version int64) (Holding, bool) {
	v, ok := hc.c.Get(holdingKey(userID, symbol, version))
	metrics.RecordHoldingCache(ok)
	if !ok {
		return Holding{}, false
	}
	h, ok := v.(Holding)
	return h, ok
}

func (hc *HoldingCache) Set(userID uuid.UUID, symbol string, version int64, h Holding) {
	hc.c.Set(holdingKey(userID, symbol, version), h, 1)
	hc.c.Wait()
}

func (hc *HoldingCache) Close() {
	hc.c.Close()
}
