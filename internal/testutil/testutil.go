// Package testutil holds shared helpers for tests that need real infrastructure.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// TestingTB is the subset of testing.TB used by the helpers.
type TestingTB interface {
	require.TestingT
	Helper()
	Skipf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Cleanup(func())
}

const (
	pingTimeout = 2 * time.Second
	// DB 0 holds reservations only; tests get one of 1..maxTestDB.
	maxTestDB   = 15
	reserveTTL  = 30 * time.Minute
	reserveKeyF = "helpdesk-portal:testutil:db:%d"
)

// candidateRedisAddrs is the lookup order when REDIS_ADDR is unset:
// the compose service name, a CI sidecar, then the local dev port.
var candidateRedisAddrs = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// TestTime is the fixed instant fake clocks start from.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func redisRequired() bool {
	for _, key := range []string{"TEST_REQUIRE_REDIS", "TEST_REQUIRE_INFRA"} {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "yes", "y":
			return true
		}
	}
	return false
}

func ping(addr string, db int) error {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

// FindTestRedis returns the first reachable Redis address. REDIS_ADDR, when
// set, is the only address tried.
func FindTestRedis(t TestingTB) (string, bool) {
	t.Helper()
	addrs := candidateRedisAddrs
	if env := os.Getenv("REDIS_ADDR"); env != "" {
		addrs = []string{env}
	}
	for _, addr := range addrs {
		err := ping(addr, 0)
		if err == nil {
			return addr, true
		}
		t.Logf("redis not reachable at %s: %v", addr, err)
	}
	return "", false
}

// reserveDB picks a DB index so parallel packages do not flush each other.
// TEST_REDIS_DB wins when valid; otherwise a lock key in DB 0 claims one of
// 1..15 until the test ends. DB 1 is the fallback when all are taken.
func reserveDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for db := 1; db <= maxTestDB; db++ {
		key := fmt.Sprintf(reserveKeyF, db)
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		ok, err := meta.SetNX(ctx, key, owner, reserveTTL).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			defer cancel()
			if err := meta.Del(ctx, key).Err(); err != nil {
				t.Logf("release %s: %v", key, err)
			}
			_ = meta.Close()
		})
		return db
	}
	_ = meta.Close()
	t.Logf("no free test DB at %s, sharing DB 1", addr)
	return 1
}

// SetupTestRedis returns a client on an empty, reserved DB. The test is
// skipped when no Redis is reachable, or fails if TEST_REQUIRE_REDIS is set.
// The client is closed on cleanup.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := FindTestRedis(t)
	if !ok {
		if redisRequired() {
			require.FailNow(t, "redis not available for testing")
		}
		t.Skipf("redis not available for testing")
	}

	db := reserveDB(t, addr)
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	require.NoError(t, client.FlushDB(ctx).Err(), "flush test DB %d at %s", db, addr)
	return client
}

// WaitForSubscribers blocks until channel has at least n subscribers.
// Publishing before the subscription is live silently drops the message.
func WaitForSubscribers(t TestingTB, client redis.UniversalClient, channel string, n int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && counts[channel] >= n
	}, 2*time.Second, 10*time.Millisecond)
}
