package collection

import (
	"context"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
	"github.com/google/uuid"
)

// Batch applies several edits inside a single sync cycle: one remote
// read before the first edit, one remote write after the last. Edits
// see each other's results immediately.
type Batch struct {
	root *bookmark.Root
	now  time.Time
}

// Batch runs fn against a batch view of the tree. The whole batch costs
// one remote read and at most one remote write no matter how many edits
// fn performs. An error from fn aborts the batch without writing.
func (s *Service) Batch(ctx context.Context, fn func(*Batch) error) error {
	return s.mutate(ctx, func(root *bookmark.Root, now time.Time) (*bookmark.Root, error) {
		batch := &Batch{root: root, now: now}
		if err := fn(batch); err != nil {
			return nil, err
		}
		return batch.root, nil
	})
}

func (b *Batch) AddCategory(name string) error {
	root, err := bookmark.AddCategory(b.root, name, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) RenameCategory(name, newName string) error {
	root, err := bookmark.RenameCategory(b.root, name, newName, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) RemoveCategory(name string) error {
	root, err := bookmark.TombstoneCategory(b.root, name, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) AddBundle(category, name string) error {
	root, err := bookmark.AddBundle(b.root, category, name, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) RenameBundle(category, name, newName string) error {
	root, err := bookmark.RenameBundle(b.root, category, name, newName, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) RemoveBundle(category, name string) error {
	root, err := bookmark.TombstoneBundle(b.root, category, name, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) AddBookmark(category, bundle string, input BookmarkInput) (uuid.UUID, error) {
	bm := bookmark.NewBookmark(input.Title, input.URL, b.now)
	bm.Tags = append([]string(nil), input.Tags...)
	bm.Notes = input.Notes
	root, err := bookmark.AddBookmark(b.root, category, bundle, bm, b.now)
	if err != nil {
		return uuid.Nil, err
	}
	b.root = root
	return bm.ID, nil
}

func (b *Batch) UpdateBookmark(category, bundle string, id uuid.UUID, change bookmark.BookmarkChange) error {
	root, err := bookmark.UpdateBookmark(b.root, category, bundle, id, change, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) RemoveBookmark(category, bundle string, id uuid.UUID) error {
	root, err := bookmark.TombstoneBookmark(b.root, category, bundle, id, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}

func (b *Batch) MoveBookmark(category, bundle string, id uuid.UUID, toCategory, toBundle string) error {
	root, err := bookmark.MoveBookmark(b.root, category, bundle, id, toCategory, toBundle, b.now)
	if err != nil {
		return err
	}
	b.root = root
	return nil
}
