package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates are probed in order when REDIS_ADDR is unset: the CI service
// name, a host-local redis, then the docker-compose test profile.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// GetTestRedisAddr returns the first reachable Redis address and whether one
// was found. REDIS_ADDR, when set, is the only candidate.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()
	candidates := redisCandidates
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}
	for _, addr := range candidates {
		if err := pingRedis(addr, 0); err != nil {
			t.Logf("Redis not available at %s: %v", addr, err)
			continue
		}
		return addr, true
	}
	return candidates[len(candidates)-1], false
}

// SetupTestRedis returns a client on an empty Redis database reserved for the
// calling test. The test is skipped when Redis is unreachable, or fails with
// TEST_REQUIRE_REDIS or TEST_REQUIRE_INFRA set.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()
	addr, ok := GetTestRedisAddr(t)
	if !ok {
		if requireRedis() {
			t.Fatal("Redis not available for testing")
		}
		t.Skip("Redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		closeAndLog(t, "redis client", client)
		if requireRedis() {
			t.Fatalf("Redis not usable at %s: %v", addr, err)
		}
		t.Skipf("Redis not usable at %s: %v", addr, err)
	}
	onCleanup(t, func() { closeAndLog(t, "redis client", client) })
	return client
}

// reserveRedisDB picks a database index so packages testing in parallel do not
// flush each other's keys. TEST_REDIS_DB overrides the choice. Otherwise a lock
// key in DB 0 claims one of DB 1..15 until the test ends; DB 1 is the fallback.
func reserveRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("Invalid TEST_REDIS_DB=%q, falling back to auto-select", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	defer closeAndLog(t, "redis meta client", meta)

	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for db := 1; db <= 15; db++ {
		lockKey := fmt.Sprintf("workmarket:testutil:db_lock:%d", db)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, lockKey, owner, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		onCleanup(t, func() { releaseRedisLock(t, addr, lockKey) })
		t.Logf("Using Redis DB=%d for tests at %s", db, addr)
		return db
	}
	t.Logf("Falling back to Redis DB=1 for tests at %s", addr)
	return 1
}

func releaseRedisLock(t TestingTB, addr, lockKey string) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	defer closeAndLog(t, "redis cleanup client", c)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Del(ctx, lockKey).Err(); err != nil {
		t.Logf("warning: failed to release redis db lock %s: %v", lockKey, err)
	}
}

func pingRedis(addr string, db int) error {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}
