package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-sanction/internal/sanction"
)

// RedisSanctionStore keeps one key per sanctioned subject. Redis executes each
// command atomically, so SETNX enforces uniqueness and GETDEL hands a record
// to exactly one caller.
type RedisSanctionStore struct {
	client *redis.Client
	prefix string
}

var _ sanction.Store = (*RedisSanctionStore)(nil)

type redisRecord struct {
	GroupID        int64     `json:"group_id"`
	UserID         int64     `json:"user_id"`
	RestrictedRole string    `json:"restricted_role"`
	TakenRoles     []string  `json:"taken_roles"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// NewRedisSanctionStore connects to redisURL and checks the connection.
func NewRedisSanctionStore(ctx context.Context, redisURL, prefix string) (*RedisSanctionStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisSanctionStoreFromClient(client, prefix), nil
}

func NewRedisSanctionStoreFromClient(client *redis.Client, prefix string) *RedisSanctionStore {
	return &RedisSanctionStore{client: client, prefix: prefix}
}

func (s *RedisSanctionStore) key(subject sanction.Subject) string {
	return fmt.Sprintf("%s:%d:%d", s.prefix, subject.GroupID, subject.UserID)
}

func (s *RedisSanctionStore) Insert(ctx context.Context, rec sanction.Record) error {
	data, err := json.Marshal(redisRecord{
		GroupID:        rec.Subject.GroupID,
		UserID:         rec.Subject.UserID,
		RestrictedRole: rec.RestrictedRole,
		TakenRoles:     rec.TakenRoles,
		Reason:         rec.Reason,
		CreatedAt:      rec.CreatedAt,
		ExpiresAt:      rec.ExpiresAt,
	})
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(rec.Subject), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return sanction.ErrAlreadySanctioned
	}
	return nil
}

func (s *RedisSanctionStore) FindBySubject(ctx context.Context, subject sanction.Subject) (*sanction.Record, error) {
	data, err := s.client.Get(ctx, s.key(subject)).Bytes()
	return decodeRedisRecord(data, err)
}

func (s *RedisSanctionStore) FindAndDelete(ctx context.Context, subject sanction.Subject) (*sanction.Record, error) {
	data, err := s.client.GetDel(ctx, s.key(subject)).Bytes()
	return decodeRedisRecord(data, err)
}

func (s *RedisSanctionStore) ListActive(ctx context.Context) ([]sanction.Record, error) {
	var records []sanction.Record
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		rec, err := decodeRedisRecord(data, err)
		if err != nil {
			return nil, err
		}
		// resolved between SCAN and GET
		if rec == nil {
			continue
		}
		records = append(records, *rec)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *RedisSanctionStore) Close() error {
	return s.client.Close()
}

func decodeRedisRecord(data []byte, err error) (*sanction.Record, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r redisRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("corrupt sanction record: %w", err)
	}
	if r.TakenRoles == nil {
		r.TakenRoles = []string{}
	}
	return &sanction.Record{
		Subject:        sanction.Subject{GroupID: r.GroupID, UserID: r.UserID},
		RestrictedRole: r.RestrictedRole,
		TakenRoles:     r.TakenRoles,
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}, nil
}
