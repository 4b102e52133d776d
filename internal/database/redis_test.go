package database

import "testing"

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name         string
		addr         string
		password     string
		wantAddr     string
		wantPassword string
		wantDB       int
	}{
		{"Host and port", "localhost:6379", "", "localhost:6379", "", 0},
		{"Explicit password", "cache:6379", "s3cret", "cache:6379", "s3cret", 0},
		{"URL", "redis://:fromurl@cache:6380/2", "", "cache:6380", "fromurl", 2},
		{"Password overrides URL", "redis://:fromurl@cache:6380/2", "override", "cache:6380", "override", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := redisOptions(tt.addr, tt.password)
			if err != nil {
				t.Fatalf("redisOptions() error = %v", err)
			}
			if opts.Addr != tt.wantAddr || opts.Password != tt.wantPassword || opts.DB != tt.wantDB {
				t.Errorf("got addr=%q password=%q db=%d", opts.Addr, opts.Password, opts.DB)
			}
			if opts.PoolSize != 50 {
				t.Errorf("PoolSize = %d, want 50", opts.PoolSize)
			}
		})
	}
}

func TestRedisOptionsRejectsBadURL(t *testing.T) {
	if _, err := redisOptions("redis://cache:6379/not-a-db", ""); err == nil {
		t.Error("expected error for invalid database number")
	}
}
