package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoSession = errors.New("session not found")

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
)

type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

type AppSession struct {
	Role      Role   `json:"role"`
	TrainerID string `json:"tid,omitempty"`
	Name      string `json:"name,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func key(id string) string            { return fmt.Sprintf("app:sess:%s", id) }
func trainerSetKey(tid string) string { return fmt.Sprintf("app:trainer_sessions:%s", tid) }

func (s *AppSessionStore) Create(ctx context.Context, id string, as AppSession) error {
	now := time.Now()
	as.IssuedAt = now.Unix()
	as.ExpiresAt = now.Add(s.ttl).Unix()
	b, err := json.Marshal(as)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	if as.Role == RoleTrainer && as.TrainerID != "" {
		pipe.SAdd(ctx, trainerSetKey(as.TrainerID), id)
		pipe.Expire(ctx, trainerSetKey(as.TrainerID), s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id) // 忽略失败
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil && as.TrainerID != "" {
		pipe.SRem(ctx, trainerSetKey(as.TrainerID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForTrainer 删除培训师时，撤销其所有会话
func (s *AppSessionStore) RevokeAllForTrainer(ctx context.Context, trainerID string) error {
	ids, err := s.rdb.SMembers(ctx, trainerSetKey(trainerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, trainerSetKey(trainerID))
	_, err = pipe.Exec(ctx)
	return err
}
