// Package cache keeps recently computed dashboards in redis so repeated
// dashboard loads within the TTL skip the organization-wide reads.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm_insights_backend/internal/insights/analytics"
	"crm_insights_backend/internal/insights/repository"
	"crm_insights_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "insights:dashboard"

// NewRedisClient connects to the redis instance named by cfg.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

// DashboardCache stores dashboards as JSON under a key per organization,
// owner scope and period.
type DashboardCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewDashboardCache returns a cache writing entries with ttl. A ttl of zero
// or less disables writes, so every Get misses.
func NewDashboardCache(client redis.Cmdable, ttl time.Duration) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl}
}

// Key is exported for operators inspecting redis.
func Key(scope repository.Scope, period analytics.Period) string {
	owner := "all"
	if scope.OwnerID != nil {
		owner = scope.OwnerID.String()
	}
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, scope.OrganizationID, owner, period)
}

func (c *DashboardCache) Get(ctx context.Context, scope repository.Scope, period analytics.Period) (analytics.Dashboard, bool, error) {
	data, err := c.client.Get(ctx, Key(scope, period)).Bytes()
	if errors.Is(err, redis.Nil) {
		return analytics.Dashboard{}, false, nil
	}
	if err != nil {
		return analytics.Dashboard{}, false, fmt.Errorf("read dashboard cache: %w", err)
	}

	var d analytics.Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return analytics.Dashboard{}, false, fmt.Errorf("decode cached dashboard: %w", err)
	}
	return d, true, nil
}

func (c *DashboardCache) Set(ctx context.Context, scope repository.Scope, period analytics.Period, d analytics.Dashboard) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dashboard: %w", err)
	}
	if err := c.client.Set(ctx, Key(scope, period), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write dashboard cache: %w", err)
	}
	return nil
}
