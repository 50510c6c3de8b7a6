package dedup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"TradeHook/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a signal cache shared across replicas. SET NX with a PX
// expiry equal to the window gives atomic mark-if-absent semantics; expiry
// replaces the in-memory sweep.
type RedisCache struct {
	cli      *redis.Client
	prefix   string
	window   time.Duration
	failOpen bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Window   time.Duration
	// FailOpen accepts signals when redis is unreachable instead of
	// failing the request.
	FailOpen bool
}

// NewRedisCache creates a redis-backed signal cache and verifies
// connectivity.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{
		cli:      cli,
		prefix:   cfg.Prefix,
		window:   cfg.Window,
		failOpen: cfg.FailOpen,
	}, nil
}

// Mark reports whether the signal identified by key should be processed.
func (c *RedisCache) Mark(ctx context.Context, key string, now time.Time) (bool, error) {
	full := c.prefix + ":signal:" + key
	val := strconv.FormatInt(now.UnixMilli(), 10)

	ok, err := c.cli.SetNX(ctx, full, val, c.window).Result()
	if err != nil {
		if c.failOpen {
			return true, nil
		}
		return false, models.WrapTradeError(models.KindGatewayError, err, "dedup redis")
	}
	return ok, nil
}

// Close releases the redis connection.
func (c *RedisCache) Close() error {
	return c.cli.Close()
}
