package database

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"billionaire_empire/internal/config"
)

type sample struct {
	Player string  `json:"player"`
	Cash   float64 `json:"cash"`
}

// exerciseStore checks the contract every backend must honor.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "billionaire_empire:state:player-1"

	if _, err := s.Load(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty store = %v, want ErrNotFound", err)
	}

	first, err := Encode(key, sample{Player: "p1", Cash: 10000}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, key, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var st sample
	env, err := Decode(got, &st)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Key != key || st.Player != "p1" || st.Cash != 10000 {
		t.Fatalf("round trip mismatch: %+v %+v", env, st)
	}

	// перезапись
	second, _ := Encode(key, sample{Player: "p1", Cash: 42}, time.Now())
	if err := s.Save(ctx, key, second); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	got, _ = s.Load(ctx, key)
	if _, err := Decode(got, &st); err != nil || st.Cash != 42 {
		t.Fatalf("overwrite not visible: cash=%v err=%v", st.Cash, err)
	}

	if err := s.Save(ctx, "  ", first); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Save with blank key = %v, want ErrInvalidKey", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestEnvelope(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Encode("k", sample{Player: "a", Cash: 1.5}, now)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		var s sample
		env, err := Decode(data, &s)
		if err != nil {
			t.Fatal(err)
		}
		if env.Version != EnvelopeVersion || !env.SavedAt.Equal(now) || s.Cash != 1.5 {
			t.Fatalf("unexpected envelope %+v / %+v", env, s)
		}
	})

	t.Run("VersionMismatch", func(t *testing.T) {
		old := bytes.Replace(data, []byte(`"version":1`), []byte(`"version":0`), 1)
		var s sample
		if _, err := Decode(old, &s); !errors.Is(err, ErrVersionMismatch) {
			t.Fatalf("Decode(old) = %v, want ErrVersionMismatch", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		var s sample
		if _, err := Decode([]byte("not json"), &s); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)

	if err := s.Save(context.Background(), "a/b:c", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a_b_c"+snapshotExt)); err != nil {
		t.Fatalf("expected sanitized file name: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestSQLStoreSQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "state.db")
	s, err := NewSQLStore(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)

	ctx := context.Background()
	_ = s.Save(ctx, "one", []byte("{}"))
	_ = s.Save(ctx, "two", []byte("{}"))
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestSQLStoreUnknownDriver(t *testing.T) {
	if _, err := NewSQLStore(context.Background(), "oracle", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping test: database not available")
	}
	s, err := NewPostgresStore(context.Background(), url)
	if err != nil {
		t.Skip("Skipping test: database not available")
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping test: redis not available")
	}
	s, err := NewRedisStore(context.Background(), url, time.Minute)
	if err != nil {
		t.Skip("Skipping test: redis not available")
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), config.Config{StoreBackend: config.BackendMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("Open(memory) = %T", s)
	}

	s, err = Open(context.Background(), config.Config{StoreBackend: config.BackendFile, SnapshotDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("Open(file) = %T", s)
	}

	if _, err := Open(context.Background(), config.Config{StoreBackend: "tape"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
