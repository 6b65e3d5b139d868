package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/csvshare-backend/internal/observability"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

const DefaultTTL = 5 * time.Minute

// CSVContent is a parsed CSV file as served by the content endpoint.
type CSVContent struct {
	Filename string              `json:"filename"`
	Columns  []string            `json:"columns"`
	Data     []map[string]string `json:"data"`
	RowCount int                 `json:"row_count"`
}

type CSVCache interface {
	Get(ctx context.Context, id uint) (*CSVContent, bool)
	Set(ctx context.Context, id uint, content *CSVContent)
	Invalidate(ctx context.Context, id uint)
	Close() error
}

func Key(id uint) string {
	return fmt.Sprintf("csv:content:%d", id)
}

type redisCache struct {
	log     *logger.Logger
	rdb     *goredis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewRedisCache connects to addr. With an empty addr it returns a no-op cache.
func NewRedisCache(log *logger.Logger, addr string, ttl time.Duration, metrics *observability.Metrics) (CSVCache, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		log.Info("REDIS_ADDR not set; csv content cache disabled")
		return Noop(), nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisCache{
		log:     log.With("service", "CSVCache"),
		rdb:     rdb,
		ttl:     ttl,
		metrics: metrics,
	}, nil
}

// Get never fails; redis errors count as misses.
func (c *redisCache) Get(ctx context.Context, id uint) (*CSVContent, bool) {
	raw, err := c.rdb.Get(ctx, Key(id)).Bytes()
	if err == goredis.Nil {
		c.metrics.IncCacheLookup("miss")
		return nil, false
	}
	if err != nil {
		c.log.Warn("csv cache get failed", "csv_id", id, "error", err)
		c.metrics.IncCacheLookup("error")
		return nil, false
	}
	var out CSVContent
	if err := json.Unmarshal(raw, &out); err != nil {
		c.log.Warn("csv cache entry corrupt", "csv_id", id, "error", err)
		c.metrics.IncCacheLookup("error")
		_ = c.rdb.Del(ctx, Key(id)).Err()
		return nil, false
	}
	c.metrics.IncCacheLookup("hit")
	return &out, true
}

func (c *redisCache) Set(ctx context.Context, id uint, content *CSVContent) {
	if content == nil {
		return
	}
	raw, err := json.Marshal(content)
	if err != nil {
		c.log.Warn("csv cache marshal failed", "csv_id", id, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, Key(id), raw, c.ttl).Err(); err != nil {
		c.log.Warn("csv cache set failed", "csv_id", id, "error", err)
	}
}

func (c *redisCache) Invalidate(ctx context.Context, id uint) {
	if err := c.rdb.Del(ctx, Key(id)).Err(); err != nil {
		c.log.Warn("csv cache invalidate failed", "csv_id", id, "error", err)
	}
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}

type noopCache struct{}

func Noop() CSVCache { return noopCache{} }

func (noopCache) Get(context.Context, uint) (*CSVContent, bool) { return nil, false }
func (noopCache) Set(context.Context, uint, *CSVContent)        {}
func (noopCache) Invalidate(context.Context, uint)              {}
func (noopCache) Close() error                                  { return nil }
