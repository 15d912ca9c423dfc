package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMirror is the optional SESSION_STORE_URL-backed write-through
// target, grounded on the redis/go-redis/v9 client used for caching in
// nonomal-WeKnora. It is never polled; see Store.Recall.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror parses a redis:// URL and returns a ready mirror.
func NewRedisMirror(url string) (*RedisMirror, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisMirror{client: redis.NewClient(opts), prefix: "convorec:session:"}, nil
}

func (r *RedisMirror) Put(ctx context.Context, sessionID string, s *SessionState, ttl time.Duration) error {
	data, err := s.MarshalForMirror()
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+sessionID, data, ttl).Err()
}

func (r *RedisMirror) Get(ctx context.Context, sessionID string) (*SessionState, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s, err := UnmarshalFromMirror(data)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (r *RedisMirror) Close() error {
	return r.client.Close()
}
