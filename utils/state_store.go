package utils

import (
	"context"
	"sync"
	"time"
)

const statePrefix = "oauth:state:"

var (
	stateStore   = map[string]time.Time{}
	stateStoreMu sync.Mutex
)

// SaveState stores an OAuth state token with TTL (default ten minutes).
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, statePrefix+state, "1", ttl).Err(); err == nil {
			return
		}
	}
	// single-instance only
	stateStoreMu.Lock()
	now := time.Now()
	for s, exp := range stateStore {
		if now.After(exp) {
			delete(stateStore, s)
		}
	}
	stateStore[state] = now.Add(ttl)
	stateStoreMu.Unlock()
}

// ConsumeState validates and removes a state token. Each state can be consumed once.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, statePrefix+state).Result(); err == nil {
			return v != ""
		}
	}
	stateStoreMu.Lock()
	exp, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	return ok && time.Now().Before(exp)
}
