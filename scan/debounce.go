package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"academy_circulation/models"
)

// Debouncer absorbs rapid duplicate deliveries of the same scanned code
// (camera noise) at the boundary, before the engine is invoked. The resolver
// itself stays stateless and idempotent, so losing Redis only costs the
// dedup, never correctness: every failure degrades to pass-through.
type Debouncer struct {
	rdb    *redis.Client
	window time.Duration
}

func NewDebouncer(rdb *redis.Client, window time.Duration) *Debouncer {
	return &Debouncer{rdb: rdb, window: window}
}

// Resolution is the cached outcome replayed to duplicate scans.
type Resolution struct {
	Found   bool         `json:"found"`
	Item    *models.Item `json:"item,omitempty"`
	Message string       `json:"message,omitempty"`
}

func seenKey(code string) string { return fmt.Sprintf("scan:seen:%s", code) }
func resKey(code string) string  { return fmt.Sprintf("scan:res:%s", code) }

// Observe reports whether this code is the first delivery within the window.
// For duplicates it replays the cached resolution when one exists; a missing
// or unreadable cache entry is treated as a first delivery.
func (d *Debouncer) Observe(ctx context.Context, code string) (first bool, cached *Resolution) {
	ok, err := d.rdb.SetNX(ctx, seenKey(code), "1", d.window).Result()
	if err != nil || ok {
		return true, nil
	}
	b, err := d.rdb.Get(ctx, resKey(code)).Bytes()
	if err != nil {
		return true, nil
	}
	var res Resolution
	if err := json.Unmarshal(b, &res); err != nil {
		return true, nil
	}
	return false, &res
}

// Remember caches the resolution for the rest of the window. Best effort.
func (d *Debouncer) Remember(ctx context.Context, code string, res *Resolution) {
	b, _ := json.Marshal(res)
	_ = d.rdb.Set(ctx, resKey(code), b, d.window).Err()
}
