package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.Token(context.Background(), ProviderGemini)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestToken_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.Token(context.Background(), ProviderQwen)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestResolvePrefersEnvironment(t *testing.T) {
	store := NewStore(&stubExecutor{token: "from-db"})
	key, err := store.Resolve(context.Background(), ProviderOpenAI, " sk-env ")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "sk-env" {
		t.Fatalf("expected sk-env, got %q", key)
	}
	key, err = store.Resolve(context.Background(), ProviderOpenAI, "")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if key != "from-db" {
		t.Fatalf("expected from-db, got %q", key)
	}
}

func TestResolveNilStore(t *testing.T) {
	var store *Store
	key, err := store.Resolve(context.Background(), ProviderGemini, "")
	if err != nil || key != "" {
		t.Fatalf("expected empty key without error, got %q %v", key, err)
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		provider string
		key      string
		wantErr  bool
	}{
		{provider: ProviderGemini, key: "secret"},
		{provider: " OpenAI ", key: "secret"},
		{provider: ProviderQwen, key: "secret"},
		{provider: ProviderGemini, key: " ", wantErr: true},
		{provider: "midjourney", key: "secret", wantErr: true},
	}
	for _, tc := range tests {
		exec := &stubExecutor{}
		err := NewStore(exec).Set(context.Background(), tc.provider, tc.key)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Set(%q, %q) expected error", tc.provider, tc.key)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Set(%q) error: %v", tc.provider, err)
		}
		if len(exec.exec.args) != 3 {
			t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
		}
		if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
			t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
		}
	}
}

func TestSetRecordsKeySuffixOnly(t *testing.T) {
	exec := &stubExecutor{}
	if err := NewStore(exec).Set(context.Background(), ProviderQwen, "sk-0123456789abcd"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	raw, ok := exec.exec.args[2].([]byte)
	if !ok {
		t.Fatalf("properties arg = %T", exec.exec.args[2])
	}
	var props map[string]string
	if err := json.Unmarshal(raw, &props); err != nil {
		t.Fatalf("decode properties: %v", err)
	}
	if props["key_suffix"] != "…abcd" || props["rotated_at"] == "" {
		t.Fatalf("unexpected properties: %v", props)
	}
	if strings.Contains(string(raw), "0123456789") {
		t.Fatalf("properties leak the key: %s", raw)
	}
	if keySuffix("short") != "****" {
		t.Fatalf("short keys must be fully masked")
	}
}
