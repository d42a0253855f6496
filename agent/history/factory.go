package history

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// DriverType selects the persistence backend for history entries.
type DriverType string

const (
	DriverMemory   DriverType = "memory"
	DriverRedis    DriverType = "redis"
	DriverPostgres DriverType = "postgres"
)

var (
	ErrInvalidDriverConfig = errors.New("invalid driver configuration")
	ErrInvalidDriverType   = errors.New("invalid driver type")
)

// DriverOption customizes driver construction.
type DriverOption func(*driverConfig)

type driverConfig struct {
	redisClient *redis.Client
	redisTTL    time.Duration
	keyPrefix   string
	bunDB       *bun.DB
}

func WithRedisClient(client *redis.Client) DriverOption {
	return func(c *driverConfig) {
		c.redisClient = client
	}
}

func WithRedisTTL(ttl time.Duration) DriverOption {
	return func(c *driverConfig) {
		c.redisTTL = ttl
	}
}

func WithKeyPrefix(prefix string) DriverOption {
	return func(c *driverConfig) {
		c.keyPrefix = prefix
	}
}

func WithBunDB(db *bun.DB) DriverOption {
	return func(c *driverConfig) {
		c.bunDB = db
	}
}

// NewDriver builds a Driver for the given backend type. Redis requires
// WithRedisClient; postgres requires WithBunDB.
func NewDriver(driverType DriverType, opts ...DriverOption) (Driver, error) {
	cfg := &driverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch driverType {
	case DriverMemory:
		return newMemoryDriver(), nil

	case DriverRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidDriverConfig
		}
		ttl := cfg.redisTTL
		if ttl <= 0 {
			ttl = 7 * 24 * time.Hour
		}
		return newRedisDriver(cfg.redisClient, cfg.keyPrefix, ttl), nil

	case DriverPostgres:
		if cfg.bunDB == nil {
			return nil, ErrInvalidDriverConfig
		}
		return newPostgresDriver(cfg.bunDB), nil

	default:
		return nil, ErrInvalidDriverType
	}
}
