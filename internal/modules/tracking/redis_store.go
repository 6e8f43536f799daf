// README: Live-location store backed by Redis GEO plus a per-provider hash.
package tracking

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"fixgo/internal/types"
)

const (
	providerGeoKey     = "live:providers"
	providerHashPrefix = "live:provider:"
	// Rows expire on their own if a crashed process never deletes them.
	liveRowTTL = 10 * time.Minute
)

type RedisLiveStore struct {
	redis *redis.Client
}

func NewRedisLiveStore(client *redis.Client) *RedisLiveStore {
	return &RedisLiveStore{redis: client}
}

func (s *RedisLiveStore) Upsert(ctx context.Context, loc LiveLocation) error {
	if err := s.redis.GeoAdd(ctx, providerGeoKey, &redis.GeoLocation{
		Name:      string(loc.ProviderID),
		Longitude: loc.Point.Lng,
		Latitude:  loc.Point.Lat,
	}).Err(); err != nil {
		return err
	}

	key := providerHashPrefix + string(loc.ProviderID)
	if err := s.redis.HSet(ctx, key, map[string]interface{}{
		"lat":        strconv.FormatFloat(loc.Point.Lat, 'f', -1, 64),
		"lng":        strconv.FormatFloat(loc.Point.Lng, 'f', -1, 64),
		"updated_at": loc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}).Err(); err != nil {
		return err
	}
	return s.redis.Expire(ctx, key, liveRowTTL).Err()
}

func (s *RedisLiveStore) Get(ctx context.Context, providerID types.ID) (*LiveLocation, error) {
	fields, err := s.redis.HGetAll(ctx, providerHashPrefix+string(providerID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotTracked
	}

	lat, err := strconv.ParseFloat(fields["lat"], 64)
	if err != nil {
		return nil, err
	}
	lng, err := strconv.ParseFloat(fields["lng"], 64)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, err
	}

	return &LiveLocation{
		ProviderID: providerID,
		Point:      types.Point{Lat: lat, Lng: lng},
		UpdatedAt:  updatedAt,
	}, nil
}

func (s *RedisLiveStore) Delete(ctx context.Context, providerID types.ID) error {
	if err := s.redis.ZRem(ctx, providerGeoKey, string(providerID)).Err(); err != nil {
		return err
	}
	return s.redis.Del(ctx, providerHashPrefix+string(providerID)).Err()
}
