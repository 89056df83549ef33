package matrix

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"routeplan/internal/model"
)

// Cached wraps a Provider with a redis cache of whole matrices, keyed by a
// digest of the inner provider's scope and the ordered location set. Cache
// failures degrade to the inner provider; they never fail a fetch.
type Cached struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
	scope string
}

// NewCached builds a caching wrapper from a redis URL. scope names the
// dimension and endpoint the inner provider fetches under (see
// DistanceMatrixAI.CacheScope); providers with different scopes never
// share cached entries.
func NewCached(inner Provider, redisURL, scope string, ttl time.Duration) (*Cached, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{inner: inner, rdb: redis.NewClient(opt), ttl: ttl, scope: scope}, nil
}

// Matrix implements Provider.
func (c *Cached) Matrix(ctx context.Context, locations []model.Location) (model.TimeMatrix, error) {
	if len(locations) < 2 {
		return nil, ErrTooFewLocations
	}
	key := cacheKey(c.scope, locations)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var m model.TimeMatrix
		if err := json.Unmarshal(raw, &m); err == nil && len(m) == len(locations) {
			return m, nil
		}
	}
	m, err := c.inner.Matrix(ctx, locations)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(m); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			log.Printf("matrix cache: set %s: %v", key, err)
		}
	}
	return m, nil
}

func cacheKey(scope string, locations []model.Location) string {
	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(joinLocations(locations)))
	return "routeplan:matrix:" + hex.EncodeToString(h.Sum(nil))[:32]
}
