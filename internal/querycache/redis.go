package querycache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// redisLayer persists cache entries between invocations. Any Redis failure
// degrades to a miss; callers never see Redis errors.
type redisLayer struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger log.FieldLogger
}

func redisPrefix(namespace string) string {
	if namespace == "" {
		namespace = "anonymous"
	}
	return "tripboard:" + namespace + ":"
}

func (r *redisLayer) get(ctx context.Context, key string, out any) bool {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WithFields(log.Fields{"key": key, "error": err.Error()}).Debug("querycache.redis_error")
			_ = r.client.Del(ctx, r.prefix+key).Err()
		}
		return false
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		_ = r.client.Del(ctx, r.prefix+key).Err()
		return false
	}
	return true
}

func (r *redisLayer) set(ctx context.Context, key string, v any) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		r.logger.WithFields(log.Fields{"key": key, "error": err.Error()}).Debug("querycache.redis_error")
	}
}

func (r *redisLayer) del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		r.logger.WithFields(log.Fields{"keys": keys, "error": err.Error()}).Debug("querycache.redis_error")
	}
}

func (r *redisLayer) delPrefix(ctx context.Context, prefix string) {
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.WithFields(log.Fields{"prefix": prefix, "error": err.Error()}).Debug("querycache.redis_error")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.WithFields(log.Fields{"prefix": prefix, "error": err.Error()}).Debug("querycache.redis_error")
	}
}
