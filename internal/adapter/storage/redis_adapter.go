package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales/internal/core/domain"
)

const (
	saleViewKeyPrefix    = "sale:view:"
	saleVersionKeyPrefix = "sale:ver:"
	defaultViewTTL       = 5 * time.Minute
	versionTTL           = 24 * time.Hour
)

// errStaleView aborts a cache write whose version was bumped meanwhile.
var errStaleView = errors.New("stale sale view")

// RedisAdapter caches sale read models and publishes events on pub/sub
// channels.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func saleViewKey(saleID int64) string {
	return saleViewKeyPrefix + strconv.FormatInt(saleID, 10)
}

func saleVersionKey(saleID int64) string {
	return saleVersionKeyPrefix + strconv.FormatInt(saleID, 10)
}

func (r *RedisAdapter) GetSaleView(ctx context.Context, saleID int64) (*domain.SaleView, error) {
	data, err := r.client.Get(ctx, saleViewKey(saleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var view domain.SaleView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("decode sale view: %w", err)
	}
	return &view, nil
}

func (r *RedisAdapter) SaleViewVersion(ctx context.Context, saleID int64) (int64, error) {
	return r.version(ctx, r.client, saleID)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisAdapter) version(ctx context.Context, c getter, saleID int64) (int64, error) {
	v, err := c.Get(ctx, saleVersionKey(saleID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetSaleView writes the view under WATCH on the version key, so an
// InvalidateSale that lands between the check and the write aborts it.
func (r *RedisAdapter) SetSaleView(ctx context.Context, view domain.SaleView, version int64) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode sale view: %w", err)
	}

	verKey := saleVersionKey(view.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := r.version(ctx, tx, view.ID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleView
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, saleViewKey(view.ID), data, r.ttl)
			return nil
		})
		return err
	}, verKey)

	if errors.Is(err, errStaleView) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (r *RedisAdapter) InvalidateSale(ctx context.Context, saleID int64) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, saleVersionKey(saleID))
		pipe.Expire(ctx, saleVersionKey(saleID), versionTTL)
		pipe.Del(ctx, saleViewKey(saleID))
		return nil
	})
	return err
}

// PublishEvent sends payload to every subscriber of channel and returns how
// many received it.
func (r *RedisAdapter) PublishEvent(ctx context.Context, channel string, payload []byte) (int64, error) {
	return r.client.Publish(ctx, channel, payload).Result()
}
