package scheduler

import (
	"testing"

	"github.com/google/uuid"
)

func TestRedisClientOpt(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		insecure    bool
		wantAddr    string
		wantDB      int
		wantTLS     bool
		wantSkipTLS bool
	}{
		{"plain", "redis://:secret@localhost:6379/2", false, "localhost:6379", 2, false, false},
		{"tls", "rediss://cache.internal:6380/0", false, "cache.internal:6380", 0, true, false},
		{"tls insecure", "rediss://cache.internal:6380/0", true, "cache.internal:6380", 0, true, true},
		{"insecure without tls scheme", "redis://localhost:6379/0", true, "localhost:6379", 0, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opt, err := redisClientOpt(tc.url, tc.insecure)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if opt.Addr != tc.wantAddr || opt.DB != tc.wantDB {
				t.Fatalf("unexpected options %+v", opt)
			}
			if (opt.TLSConfig != nil) != tc.wantTLS {
				t.Fatalf("tls config present=%v, want %v", opt.TLSConfig != nil, tc.wantTLS)
			}
			if tc.wantTLS && opt.TLSConfig.InsecureSkipVerify != tc.wantSkipTLS {
				t.Fatalf("InsecureSkipVerify=%v, want %v", opt.TLSConfig.InsecureSkipVerify, tc.wantSkipTLS)
			}
		})
	}
}

func TestRedisClientOptRejectsBadURL(t *testing.T) {
	if _, err := redisClientOpt("http://nope", false); err == nil {
		t.Fatalf("expected an error for a non-redis scheme")
	}
}

func TestHealthRefreshTaskIDIsStablePerOrganization(t *testing.T) {
	org := uuid.New()
	if healthRefreshTaskID(org) != healthRefreshTaskID(org) {
		t.Fatalf("task id must be deterministic")
	}
	if healthRefreshTaskID(org) == healthRefreshTaskID(uuid.New()) {
		t.Fatalf("task ids must differ between organizations")
	}
}
