package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "session:"

// Redis実装のセッションストア。
// ユーザーをJSONで保存し、トークンと必ずペアで消す。
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(addr string, password string, db int, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	//接続確認
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisSessionStore{client: client, ttl: ttl}, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, token string, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+token, data, s.ttl).Err()
}

func (s *RedisSessionStore) Find(ctx context.Context, token string) (model.User, error) {
	val, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return model.User{}, repo.ErrSessionNotFound
	}
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := json.Unmarshal([]byte(val), &user); err != nil {
		// 壊れたセッションは読めない→消して「無い」扱い
		_ = s.client.Del(ctx, sessionKeyPrefix+token).Err()
		return model.User{}, repo.ErrSessionNotFound
	}
	return user, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}

func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
