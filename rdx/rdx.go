// Package rdx backs persistence and order events with redis.
package rdx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	Conn *redis.Client
}

func New(addr, password string) *Store {
	return &Store{Conn: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})}
}

// Ping checks the connection, giving up after five seconds.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return errors.Wrap(s.Conn.Ping(ctx).Err(), "redis ping")
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.Conn.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, data []byte) error {
	return s.Conn.Set(ctx, key, data, 0).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.Conn.Del(ctx, keys...).Err()
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.Conn.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.Conn.Publish(ctx, channel, payload).Err()
}

// Subscribe delivers every message on channel to fn until ctx is done.
func (s *Store) Subscribe(ctx context.Context, channel string, fn func([]byte)) error {
	sub := s.Conn.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "subscribe %s", channel)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn([]byte(msg.Payload))
		}
	}
}

func (s *Store) Close() error {
	return s.Conn.Close()
}
