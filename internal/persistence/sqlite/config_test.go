package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/example/conference-central/internal/persistence"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty path", mutate: func(c *Config) { c.Path = " " }, wantErr: true},
		{name: "memory", mutate: func(c *Config) { c.Path = ":memory:" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.BusyTimeout = -time.Second }, wantErr: true},
		{name: "bad journal", mutate: func(c *Config) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *Config) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool", mutate: func(c *Config) { c.MaxOpenConns = -1 }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultConfig("data/conference.db")
			tc.mutate(&config)
			err := config.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigDSN(t *testing.T) {
	t.Parallel()

	dsn := DefaultConfig("data/conference.db?ignored=1").DSN()

	if !strings.HasPrefix(dsn, "data/conference.db?") {
		t.Fatalf("unexpected DSN base: %s", dsn)
	}
	for _, want := range []string{
		"_txlock=immediate",
		"_pragma=busy_timeout%285000%29",
		"_pragma=journal_mode%28WAL%29",
		"_pragma=synchronous%28NORMAL%29",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
	if strings.Contains(dsn, "ignored") {
		t.Errorf("DSN %q kept caller query parameters", dsn)
	}
}

func TestErrorMapperFallbacks(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: persistence.ErrNotFound},
		{name: "locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), want: ErrBusy},
		{name: "unique", err: errors.New("UNIQUE constraint failed: profiles.user_id"), want: persistence.ErrDuplicate},
		{name: "check", err: fmt.Errorf("exec: %w", errors.New("CHECK constraint failed: seats")), want: persistence.ErrConstraintViolation},
	}

	for _, tc := range tests {
		if got := mapper.MapError(tc.err); !errors.Is(got, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if mapper.MapError(nil) != nil {
		t.Error("expected nil to map to nil")
	}
	plain := errors.New("boom")
	if got := mapper.MapError(plain); got != plain {
		t.Errorf("expected unrelated error to pass through, got %v", got)
	}
}
