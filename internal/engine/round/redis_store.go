package round

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const (
	queuedBetsKey    = "duel:queued_bets"
	roundSnapshotKey = "duel:round_snapshot"
)

// RedisStore persiste a fila de apostas (hash por usuário) e o snapshot do
// round ativo como JSON no Redis.
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(c *redis.Client) *RedisStore { return &RedisStore{Client: c} }

func (s *RedisStore) QueuedBets(ctx context.Context) ([]QueuedBet, error) {
	fields, err := s.Client.HGetAll(ctx, queuedBetsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]QueuedBet, 0, len(fields))
	for _, raw := range fields {
		var qb QueuedBet
		if err := json.Unmarshal([]byte(raw), &qb); err != nil {
			continue // entrada corrompida não derruba o replay
		}
		out = append(out, qb)
	}
	return out, nil
}

// PutQueuedBet insere ou substitui a aposta enfileirada do usuário
func (s *RedisStore) PutQueuedBet(ctx context.Context, qb QueuedBet) error {
	b, err := json.Marshal(qb)
	if err != nil {
		return err
	}
	return s.Client.HSet(ctx, queuedBetsKey, qb.UserID, b).Err()
}

func (s *RedisStore) DeleteQueuedBet(ctx context.Context, userID string) (QueuedBet, error) {
	raw, err := s.Client.HGet(ctx, queuedBetsKey, userID).Result()
	if err == redis.Nil {
		return QueuedBet{}, ErrNoQueuedBet
	}
	if err != nil {
		return QueuedBet{}, err
	}

	var qb QueuedBet
	if err := json.Unmarshal([]byte(raw), &qb); err != nil {
		return QueuedBet{}, err
	}
	if err := s.Client.HDel(ctx, queuedBetsKey, userID).Err(); err != nil {
		return QueuedBet{}, err
	}
	return qb, nil
}

func (s *RedisStore) ClearQueuedBets(ctx context.Context) error {
	return s.Client.Del(ctx, queuedBetsKey).Err()
}

// SaveSnapshot grava o round ativo; nil limpa o snapshot.
func (s *RedisStore) SaveSnapshot(ctx context.Context, r *Round) error {
	if r == nil {
		return s.Client.Del(ctx, roundSnapshotKey).Err()
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, roundSnapshotKey, b, 0).Err()
}

func (s *RedisStore) LoadSnapshot(ctx context.Context) (*Round, error) {
	raw, err := s.Client.Get(ctx, roundSnapshotKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r Round
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
