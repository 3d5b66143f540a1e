package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-grading-service/internal/domain"
)

const (
	responseKeyPrefix = "quiz:response:"
	ipKeyPrefix       = "quiz:response:ip:"
	indexKey          = "quiz:responses:index"
	seqKey            = "quiz:responses:seq"
)

// ResponseStore keeps submission records in Redis: the record JSON lives under
// a per-email key, a guard key per IP enforces the secondary uniqueness, and a
// sorted set indexed by ID preserves insertion order for listing.
type ResponseStore struct {
	client *redis.Client
}

func NewResponseStore(client *redis.Client) *ResponseStore {
	return &ResponseStore{client: client}
}

func (s *ResponseStore) Insert(ctx context.Context, record *domain.SubmissionRecord) error {
	id, err := s.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return fmt.Errorf("next id: %w", err)
	}
	record.ID = id

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	// SETNX reserves the email key atomically, closing the check-then-insert race.
	created, err := s.client.SetNX(ctx, s.emailKey(record.Correo), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if !created {
		return domain.ErrDuplicateSubmission
	}

	if record.IP != "" {
		guarded, err := s.client.SetNX(ctx, ipKeyPrefix+record.IP, record.Correo, 0).Result()
		if err != nil {
			// Drop the email key so a failed guard write never leaves a partial insert.
			_ = s.client.Del(ctx, s.emailKey(record.Correo)).Err()
			return fmt.Errorf("guard ip: %w", err)
		}
		if !guarded {
			_ = s.client.Del(ctx, s.emailKey(record.Correo)).Err()
			return domain.ErrDuplicateSubmission
		}
	}

	if err := s.client.ZAdd(ctx, indexKey, redis.Z{Score: float64(id), Member: record.Correo}).Err(); err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	return nil
}

func (s *ResponseStore) FindByEmail(ctx context.Context, correo string) (domain.SubmissionRecord, error) {
	payload, err := s.client.Get(ctx, s.emailKey(correo)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SubmissionRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("get record: %w", err)
	}

	var record domain.SubmissionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return domain.SubmissionRecord{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return record, nil
}

func (s *ResponseStore) List(ctx context.Context) ([]domain.SubmissionRecord, error) {
	correos, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list index: %w", err)
	}

	records := make([]domain.SubmissionRecord, 0, len(correos))
	for _, correo := range correos {
		record, err := s.FindByEmail(ctx, correo)
		if errors.Is(err, domain.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *ResponseStore) Update(ctx context.Context, record domain.SubmissionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	// XX: only overwrite an existing record.
	updated, err := s.client.SetXX(ctx, s.emailKey(record.Correo), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if !updated {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (s *ResponseStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, responseKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan records: %w", err)
	}
	keys = append(keys, indexKey, seqKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func (s *ResponseStore) emailKey(correo string) string {
	return responseKeyPrefix + correo
}
