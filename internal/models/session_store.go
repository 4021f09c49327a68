package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrSessionNotFound = fmt.Errorf("session not found: %w", ErrNotFound)

// SessionStore keeps server-side login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, sessionID string, userID primitive.ObjectID, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (primitive.ObjectID, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID primitive.ObjectID) error
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(userID primitive.ObjectID) string {
	return "user_sessions:" + userID.Hex()
}

func (r *RedisRepo) CreateSession(ctx context.Context, sessionID string, userID primitive.ObjectID, ttl time.Duration) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sessionID), userID.Hex(), ttl)
		pipe.SAdd(ctx, userSessionsKey(userID), sessionID)
		pipe.Expire(ctx, userSessionsKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (r *RedisRepo) GetSession(ctx context.Context, sessionID string) (primitive.ObjectID, error) {
	val, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return primitive.NilObjectID, ErrSessionNotFound
		}
		return primitive.NilObjectID, fmt.Errorf("error reading session: %w", err)
	}

	userID, err := primitive.ObjectIDFromHex(val)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, nil
}

func (r *RedisRepo) DeleteSession(ctx context.Context, sessionID string) error {
	userID, err := r.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.SRem(ctx, userSessionsKey(userID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

func (r *RedisRepo) DeleteUserSessions(ctx context.Context, userID primitive.ObjectID) error {
	ids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error deleting sessions: %w", err)
	}
	return nil
}
