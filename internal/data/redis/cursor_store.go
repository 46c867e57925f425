package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const cursorKeyPrefix = "settlement:cursor:"

// CursorStore remembers the last ledger paging token streamed for an account
type CursorStore struct {
	client redis.UniversalClient
}

func NewCursorStore(client redis.UniversalClient) *CursorStore {
	return &CursorStore{client: client}
}

// Load returns the stored cursor, or fallback when none was saved yet
func (s *CursorStore) Load(ctx context.Context, account, fallback string) (string, error) {
	cursor, err := s.client.Get(ctx, cursorKeyPrefix+account).Result()
	if errors.Is(err, redis.Nil) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor failed: %w", err)
	}
	return cursor, nil
}

// Save stores the cursor without expiry
func (s *CursorStore) Save(ctx context.Context, account, cursor string) error {
	if err := s.client.Set(ctx, cursorKeyPrefix+account, cursor, 0).Err(); err != nil {
		return fmt.Errorf("set cursor failed: %w", err)
	}
	return nil
}
