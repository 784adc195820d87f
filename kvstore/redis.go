package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const scanCount = 1000

// Redis is a Backend stored in a single redis hash. Field names are decimal
// MMSIs.
type Redis struct {
	client *redis.Client
	key    string
}

// RedisOpener opens the hash "aistrack:<Name>".
type RedisOpener struct {
	Client *redis.Client
	Name   string
}

func (o RedisOpener) key() string { return "aistrack:" + o.Name }

func (o RedisOpener) String() string { return "redis:" + o.key() }

func (o RedisOpener) Open(ctx context.Context) (Backend, error) {
	if o.Client == nil {
		return nil, errors.New("redis backend: no client configured")
	}
	if err := o.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	// a key of the wrong type is the redis equivalent of a corrupt file
	typ, err := o.Client.Type(ctx, o.key()).Result()
	if err != nil {
		return nil, err
	}
	if typ != "none" && typ != "hash" {
		return nil, fmt.Errorf("%s holds a %s, want hash", o.key(), typ)
	}
	return &Redis{client: o.Client, key: o.key()}, nil
}

func (o RedisOpener) Reset(ctx context.Context) error {
	if o.Client == nil {
		return errors.New("redis backend: no client configured")
	}
	return o.Client.Del(ctx, o.key()).Err()
}

func (r *Redis) Get(ctx context.Context, key uint32) ([]byte, error) {
	v, err := r.client.HGet(ctx, r.key, field(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *Redis) Put(ctx context.Context, key uint32, val []byte) error {
	return r.client.HSet(ctx, r.key, field(key), val).Err()
}

func (r *Redis) Delete(ctx context.Context, key uint32) error {
	return r.client.HDel(ctx, r.key, field(key)).Err()
}

// ForEach scans the whole hash and then visits it in key order; HSCAN has no
// ordering of its own.
func (r *Redis) ForEach(ctx context.Context, fn func(key uint32, val []byte) error) error {
	entries := map[uint32][]byte{}
	var cursor uint64
	for {
		kv, next, err := r.client.HScan(ctx, r.key, cursor, "", scanCount).Result()
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(kv); i += 2 {
			k, err := strconv.ParseUint(kv[i], 10, 32)
			if err != nil {
				continue
			}
			entries[uint32(k)] = []byte(kv[i+1])
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	keys := make([]uint32, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if err := fn(k, entries[k]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	return int(n), err
}

// Compact is a no-op; redis reclaims memory on HDEL.
func (r *Redis) Compact(context.Context) error { return nil }

// Close leaves the shared client open.
func (r *Redis) Close() error { return nil }

func field(key uint32) string { return strconv.FormatUint(uint64(key), 10) }
