package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = toString(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(ctx context.Context, key string) *redis.StringCmd {
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	var current int64
	if raw, ok := f.values[key]; ok {
		for _, ch := range raw {
			current = current*10 + int64(ch-'0')
		}
	}
	current++
	f.values[key] = toString(current)
	return redis.NewIntResult(current, nil)
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var deleted int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}

func toString(v any) string {
	switch typed := v.(type) {
	case string:
		return typed
	case int64:
		if typed == 0 {
			return "0"
		}
		digits := ""
		for typed > 0 {
			digits = string(rune('0'+typed%10)) + digits
			typed /= 10
		}
		return digits
	default:
		return ""
	}
}

func TestGetMissMapsToErrCacheMiss(t *testing.T) {
	client := &Client{store: newFakeStore()}
	if _, err := client.Get(context.Background(), "ko:none"); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestGenerationLifecycle(t *testing.T) {
	client := &Client{store: newFakeStore()}
	ctx := context.Background()

	gen, err := client.Generation(ctx)
	if err != nil || gen != 0 {
		t.Fatalf("fresh generation should be 0, got %d, %v", gen, err)
	}

	bumped, err := client.BumpGeneration(ctx)
	if err != nil || bumped != 1 {
		t.Fatalf("expected bump to 1, got %d, %v", bumped, err)
	}

	gen, err = client.Generation(ctx)
	if err != nil || gen != 1 {
		t.Fatalf("expected generation 1 after bump, got %d, %v", gen, err)
	}

	before := client.AggregateKey(0, "sig")
	after := client.AggregateKey(gen, "sig")
	if before == after {
		t.Fatal("generation bump must change aggregate keys")
	}
}

func TestBuildKeySkipsEmptySegments(t *testing.T) {
	client := &Client{}
	if got := client.AggregateKey(2, "abc"); got != "ko:aggregate:g2:abc" {
		t.Fatalf("unexpected key %q", got)
	}
}
