package localstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", "file:localstore_test?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = sqldb.Close()
	})

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if _, err := db.NewTruncateTable().Model((*KVEntry)(nil)).Exec(ctx2); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func TestBunStoreGetSetDelete(t *testing.T) {
	store := NewBunStore(newTestDB(t))
	ctx := context.Background()

	if _, err := store.Get(ctx, "snapshot"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "snapshot", `{"version":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := store.Get(ctx, "snapshot")
	if err != nil || value != `{"version":1}` {
		t.Fatalf("get: value=%q err=%v", value, err)
	}

	if err := store.Set(ctx, "snapshot", `{"version":1,"categories":[]}`); err != nil {
		t.Fatalf("update: %v", err)
	}
	value, _ = store.Get(ctx, "snapshot")
	if value != `{"version":1,"categories":[]}` {
		t.Fatalf("expected updated value, got %q", value)
	}

	if err := store.Delete(ctx, "snapshot"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "snapshot"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "snapshot"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}
