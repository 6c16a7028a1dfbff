package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/itemcf/core"
)

// BreakerConfig 是熔断参数。
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"` // 连续失败多少次后熔断
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`                     // 熔断后多久进入半开
	MaxRequests      uint32        `yaml:"max_requests" json:"max_requests"`           // 半开状态允许的请求数
}

// BreakerStore 给远端 Store 加熔断：后端连续失败时快速失败，
// 由 recall.Fanout 跳过该召回源，在线请求不被拖慢。
//
// key 不存在不计为失败。
type BreakerStore struct {
	next core.Store
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore 包装 next。
func NewBreakerStore(next core.Store, cfg BreakerConfig, logger zerolog.Logger) *BreakerStore {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxReq := cfg.MaxRequests
	if maxReq == 0 {
		maxReq = 1
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: maxReq,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("store", name).Str("from", from.String()).Str("to", to.String()).Msg("store breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsStoreNotFound(err)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func (b *BreakerStore) Name() string { return b.next.Name() }

// State 返回熔断器状态（closed / half-open / open）。
func (b *BreakerStore) State() string { return b.cb.State().String() }

func (b *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (b *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Set(ctx, key, value, ttl...)
	})
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return err
}

func (b *BreakerStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.BatchGet(ctx, keys)
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string][]byte), nil
}

func (b *BreakerStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.BatchSet(ctx, kvs, ttl...)
	})
	return err
}

func (b *BreakerStore) Close() error {
	return b.next.Close()
}

var _ core.Store = (*BreakerStore)(nil)
