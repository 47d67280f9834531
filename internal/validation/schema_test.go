package validation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-bookmarks/internal/bookmark"
)

func TestValidateSnapshotAcceptsSerializedRoot(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	root := bookmark.NewRoot(now)
	root, err := bookmark.AddCategory(root, "Dev", now)
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	root, err = bookmark.AddBundle(root, "Dev", "Tools", now)
	if err != nil {
		t.Fatalf("add bundle: %v", err)
	}
	root, err = bookmark.AddBookmark(root, "Dev", "Tools", bookmark.NewBookmark("A", "https://a.com", now), now)
	if err != nil {
		t.Fatalf("add bookmark: %v", err)
	}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateSnapshot(data); err != nil {
		t.Fatalf("expected snapshot to validate, got %v", err)
	}
}

func TestValidateSnapshotRejectsMalformedJSON(t *testing.T) {
	err := ValidateSnapshot([]byte(`{"version":`))
	if !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("expected ErrSnapshotInvalid, got %v", err)
	}
}

func TestValidateSnapshotRejectsMissingVersion(t *testing.T) {
	err := ValidateSnapshot([]byte(`{"categories":[]}`))
	if !errors.Is(err, ErrSnapshotValidation) {
		t.Fatalf("expected ErrSnapshotValidation, got %v", err)
	}
	if issues := Issues(err); len(issues) == 0 {
		t.Fatal("expected at least one validation issue")
	}
}

func TestValidateSnapshotRejectsBookmarkWithoutURL(t *testing.T) {
	payload := `{
		"version": 1,
		"categories": [{
			"name": "Dev",
			"bundles": [{
				"name": "Tools",
				"bookmarks": [{"id": "8e2f2ec9-58f3-4d6a-9f39-0a6d5b9c2a11", "title": "A"}]
			}]
		}]
	}`
	err := ValidateSnapshot([]byte(payload))
	if !errors.Is(err, ErrSnapshotValidation) {
		t.Fatalf("expected ErrSnapshotValidation, got %v", err)
	}

	var snapshotErr *SnapshotValidationError
	if !errors.As(err, &snapshotErr) {
		t.Fatalf("expected SnapshotValidationError, got %T", err)
	}
	found := false
	for _, issue := range snapshotErr.Issues {
		if issue.Location != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected located issues, got %+v", snapshotErr.Issues)
	}
}

func TestValidateSnapshotRejectsUnknownFields(t *testing.T) {
	err := ValidateSnapshot([]byte(`{"version": 1, "owner": "me"}`))
	if !errors.Is(err, ErrSnapshotValidation) {
		t.Fatalf("expected ErrSnapshotValidation, got %v", err)
	}
}
