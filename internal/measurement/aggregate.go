package measurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Aggregator answers "previously approved" queries, caching results in
// redis and collapsing concurrent identical lookups. Entries are
// invalidated per partner by bumping a version key, so no scan over
// individual cache keys is needed.
type Aggregator struct {
	repo   Repository
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewAggregator constructs the Aggregator. rdb may be nil, in which case
// every lookup goes straight to the database.
func NewAggregator(repo Repository, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Aggregator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Aggregator{repo: repo, rdb: rdb, ttl: ttl, logger: logger}
}

func versionKey(partnerID int64) string {
	return fmt.Sprintf("medicao:prevqty:ver:%d", partnerID)
}

func (a *Aggregator) cacheKey(ctx context.Context, partnerID int64, saleOrderLineID, contractLineID *int64, excludeSheetID int64) string {
	ver := "0"
	if v, err := a.rdb.Get(ctx, versionKey(partnerID)).Result(); err == nil {
		ver = v
	}
	var o, c int64
	if saleOrderLineID != nil {
		o = *saleOrderLineID
	}
	if contractLineID != nil {
		c = *contractLineID
	}
	return fmt.Sprintf("medicao:prevqty:%s:%d:o%d:c%d:x%d", ver, partnerID, o, c, excludeSheetID)
}

// PreviousApproved returns the cross-period approved quantity sum for
// the given source line reference, excluding the caller's own sheet.
func (a *Aggregator) PreviousApproved(ctx context.Context, partnerID int64, saleOrderLineID, contractLineID *int64, excludeSheetID int64) (float64, error) {
	if saleOrderLineID == nil && contractLineID == nil {
		return 0, nil
	}
	if a.rdb == nil {
		return a.repo.PreviousApproved(ctx, partnerID, saleOrderLineID, contractLineID, excludeSheetID)
	}

	key := a.cacheKey(ctx, partnerID, saleOrderLineID, contractLineID, excludeSheetID)
	if raw, err := a.rdb.Get(ctx, key).Result(); err == nil {
		if sum, err := strconv.ParseFloat(raw, 64); err == nil {
			return sum, nil
		}
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		sum, err := a.repo.PreviousApproved(ctx, partnerID, saleOrderLineID, contractLineID, excludeSheetID)
		if err != nil {
			return 0.0, err
		}
		if err := a.rdb.Set(ctx, key, strconv.FormatFloat(sum, 'f', -1, 64), a.ttl).Err(); err != nil {
			a.logger.Warn("cache previous approved", slog.Any("error", err))
		}
		return sum, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Invalidate drops cached sums for a partner by bumping the version key.
// Called after any state change that affects the approved universe.
func (a *Aggregator) Invalidate(ctx context.Context, partnerID int64) {
	if a.rdb == nil {
		return
	}
	if err := a.rdb.Incr(ctx, versionKey(partnerID)).Err(); err != nil {
		a.logger.Warn("invalidate previous approved cache",
			slog.Int64("partner_id", partnerID), slog.Any("error", err))
	}
}
