package export

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/purchasing"
)

const artifactPrefix = "po:export:"

// ArtifactStore keeps rendered workbooks for a limited time.
type ArtifactStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewArtifactStore wraps a Redis client.
func NewArtifactStore(client *redis.Client, ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ArtifactStore{client: client, ttl: ttl}
}

func artifactKey(poID string) string {
	return artifactPrefix + poID
}

// Put stores the workbook under the PO id.
func (s *ArtifactStore) Put(ctx context.Context, poID string, res Result) error {
	if s == nil || s.client == nil {
		return nil
	}
	key := artifactKey(poID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"filename", res.Filename,
			"data", res.Data,
			"subtotal", res.Totals.Subtotal.String(),
			"tax", res.Totals.Tax.String(),
			"grand", res.Totals.Grand.String(),
		)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Get returns the stored workbook. The boolean is false when nothing is stored.
func (s *ArtifactStore) Get(ctx context.Context, poID string) (Result, bool, error) {
	if s == nil || s.client == nil {
		return Result{}, false, nil
	}
	fields, err := s.client.HGetAll(ctx, artifactKey(poID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	res := Result{
		Filename: fields["filename"],
		Data:     []byte(fields["data"]),
		Totals: purchasing.Totals{
			Subtotal: decimalOrZero(fields["subtotal"]),
			Tax:      decimalOrZero(fields["tax"]),
			Grand:    decimalOrZero(fields["grand"]),
		},
	}
	if len(res.Data) == 0 {
		return Result{}, false, nil
	}
	return res, true, nil
}

// Delete drops a stored workbook.
func (s *ArtifactStore) Delete(ctx context.Context, poID string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, artifactKey(poID)).Err()
}

func decimalOrZero(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
