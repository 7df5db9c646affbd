package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "gatherbot:session:"

// RedisSessions keeps session state in Redis so drafts survive a process
// restart. Selected when REDIS_URL is set; otherwise MemorySessions is used.
// Keys are written without expiry, matching the no-TTL session lifecycle.
// Redis failures degrade to empty state with a logged error; session state is
// best-effort by design.
type RedisSessions struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisSessions(url string, log *slog.Logger) (*RedisSessions, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSessions{client: client, log: log}, nil
}

func (r *RedisSessions) Close() error { return r.client.Close() }

func sessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, userID)
}

func (r *RedisSessions) load(userID int64) *userSession {
	ctx := context.Background()
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &userSession{}
	}
	if err != nil {
		r.log.Error("session load failed", "user_id", userID, "error", err)
		return &userSession{}
	}
	var s userSession
	if err := json.Unmarshal(data, &s); err != nil {
		r.log.Error("session decode failed", "user_id", userID, "error", err)
		return &userSession{}
	}
	return &s
}

func (r *RedisSessions) save(userID int64, s *userSession) {
	data, err := json.Marshal(s)
	if err != nil {
		r.log.Error("session encode failed", "user_id", userID, "error", err)
		return
	}
	if err := r.client.Set(context.Background(), sessionKey(userID), data, 0).Err(); err != nil {
		r.log.Error("session save failed", "user_id", userID, "error", err)
	}
}

func (r *RedisSessions) Draft(userID int64) (*EventProposal, bool) {
	s := r.load(userID)
	if s.Draft == nil {
		return nil, false
	}
	return s.Draft, true
}

func (r *RedisSessions) SetDraft(userID int64, p *EventProposal) {
	s := r.load(userID)
	s.Draft = p
	r.save(userID, s)
}

func (r *RedisSessions) AddInterest(userID int64, interest string) {
	s := r.load(userID)
	s.Interests = addUnique(s.Interests, interest)
	r.save(userID, s)
}

func (r *RedisSessions) Interests(userID int64) []string {
	return r.load(userID).Interests
}

func (r *RedisSessions) AddPreferredTime(userID int64, t string) {
	s := r.load(userID)
	s.PreferredTimes = addUnique(s.PreferredTimes, t)
	r.save(userID, s)
}

func (r *RedisSessions) PreferredTimes(userID int64) []string {
	return r.load(userID).PreferredTimes
}
