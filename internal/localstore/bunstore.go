package localstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-bookmarks/internal/identity"
	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

// KVEntry is the persisted key-value record.
type KVEntry struct {
	bun.BaseModel `bun:"table:bookmark_kv,alias:kv"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Key       string    `bun:"key,notnull,unique" json:"key"`
	Value     string    `bun:"value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// BunStore persists sync bookkeeping in SQLite or Postgres through a
// go-repository-bun repository, optionally wrapped with a read cache.
type BunStore struct {
	repo repository.Repository[*KVEntry]
}

// NewBunStore creates an uncached SQL-backed store.
func NewBunStore(db *bun.DB) *BunStore {
	return NewBunStoreWithCache(db, nil, nil)
}

// NewBunStoreWithCache adds a go-repository-cache wrap when both the
// cache service and key serializer are provided.
func NewBunStoreWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunStore {
	base := newKVRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunStore{repo: base}
}

// Migrate creates the backing table. Embedders with their own migration
// pipeline can register the KVEntry model instead.
func Migrate(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*KVEntry)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Get(ctx context.Context, key string) (string, error) {
	record, err := s.repo.GetByIdentifier(ctx, key)
	if err != nil {
		return "", mapStoreError(err)
	}
	return record.Value, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	record := &KVEntry{
		ID:        identity.UUID("go-bookmarks:kv:" + key),
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	existing, err := s.repo.GetByIdentifier(ctx, key)
	if err != nil {
		if !goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return err
		}
		_, err = s.repo.Create(ctx, record)
		return err
	}
	record.ID = existing.ID
	_, err = s.repo.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateColumns("value", "updated_at"),
	)
	return err
}

func (s *BunStore) Delete(ctx context.Context, key string) error {
	existing, err := s.repo.GetByIdentifier(ctx, key)
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil
		}
		return err
	}
	return s.repo.Delete(ctx, existing)
}

func newKVRepository(db *bun.DB) repository.Repository[*KVEntry] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*KVEntry]{
		NewRecord: func() *KVEntry { return &KVEntry{} },
		GetID: func(entry *KVEntry) uuid.UUID {
			return entry.ID
		},
		SetID: func(entry *KVEntry, id uuid.UUID) {
			entry.ID = id
		},
		GetIdentifier: func() string {
			return "key"
		},
		GetIdentifierValue: func(entry *KVEntry) string {
			return entry.Key
		},
	})
}

func mapStoreError(err error) error {
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return interfaces.ErrKeyNotFound
	}
	return err
}

var _ interfaces.LocalStore = (*BunStore)(nil)
