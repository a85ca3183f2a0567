package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/oshokin/safeguardian/internal/domain/contact"
	"github.com/oshokin/safeguardian/internal/wire"
)

// DefaultRedisKey is the key the encoded contact list is stored under.
const DefaultRedisKey = "safeguardian:contacts"

// RedisRepository persists the contact list as one JSON value in Redis.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository wraps an existing client. An empty key uses DefaultRedisKey.
func NewRedisRepository(client *redis.Client, key string) *RedisRepository {
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisRepository{
		client: client,
		key:    key,
	}
}

// Load reads and decodes the stored list.
func (r *RedisRepository) Load(ctx context.Context) ([]*contact.Contact, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get contacts: %w", err)
	}

	return wire.UnmarshalContacts(data)
}

// Save encodes and stores the list without expiry.
func (r *RedisRepository) Save(ctx context.Context, contacts []*contact.Contact) error {
	data, err := wire.MarshalContacts(contacts)
	if err != nil {
		return err
	}

	if err = r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set contacts: %w", err)
	}

	return nil
}
