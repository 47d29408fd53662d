package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps session records as Redis hashes
type Store struct {
	client  redis.Cmdable
	options StoreOptions
}

type StoreOptions struct {
	Prefix string
}

type StoreOption func(*StoreOptions)

// WithStorePrefix sets the key prefix for session hashes
func WithStorePrefix(prefix string) StoreOption {
	return func(o *StoreOptions) {
		o.Prefix = prefix
	}
}

func NewStore(client redis.Cmdable, opts ...StoreOption) *Store {
	options := &StoreOptions{Prefix: "session:"}
	for _, opt := range opts {
		opt(options)
	}

	return &Store{
		client:  client,
		options: *options,
	}
}

// Load returns an empty map when the session does not exist
func (s *Store) Load(ctx context.Context, id string) (map[string]string, error) {
	const op = "session.Store.Load"
	key := s.options.Prefix + id

	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get hash: %w", op, err)
	}
	return result, nil
}

// saveScript replaces the hash and sets its expiry in one step.
// ARGV[1] is the ttl in milliseconds, the rest are field/value pairs.
var saveScript = redis.NewScript(`
local key = KEYS[1]
local ttl = tonumber(ARGV[1])
redis.call('DEL', key)
if #ARGV > 1 then
    redis.call('HSET', key, unpack(ARGV, 2))
end
if ttl > 0 then
    redis.call('PEXPIRE', key, ttl)
end
return 1
`)

// Save overwrites the session record. A non-positive ttl keeps it forever.
func (s *Store) Save(ctx context.Context, id string, data map[string]string, ttl time.Duration) error {
	const op = "session.Store.Save"
	key := s.options.Prefix + id

	fields := make([]string, 0, len(data))
	for k := range data {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	args := make([]any, 0, len(data)*2+1)
	args = append(args, ttl.Milliseconds())
	for _, k := range fields {
		args = append(args, k, data[k])
	}

	if err := saveScript.Run(ctx, s.client, []string{key}, args...).Err(); err != nil {
		return fmt.Errorf("%s: failed to execute save script: %w", op, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "session.Store.Delete"
	if err := s.client.Del(ctx, s.options.Prefix+id).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete key: %w", op, err)
	}
	return nil
}
