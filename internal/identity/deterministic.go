package identity

import (
	"strconv"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// ParsedBookmarkUUID derives the parse-time id for a bookmark from its
// location and url, so the same document always parses to the same ids.
// Position disambiguates repeated urls within one bundle.
func ParsedBookmarkUUID(category, bundle string, position int, url string) uuid.UUID {
	return UUID("go-bookmarks:bookmark:" + strings.TrimSpace(category) + "/" + strings.TrimSpace(bundle) + ":" + strconv.Itoa(position) + ":" + strings.TrimSpace(url))
}

// DocumentUUID identifies a remote document by the filename it is
// searched under.
func DocumentUUID(filename string) uuid.UUID {
	return UUID("go-bookmarks:document:" + strings.ToLower(strings.TrimSpace(filename)))
}

// LockOwnerUUID identifies a creation-lock holder.
func LockOwnerUUID(hostname string, pid int) uuid.UUID {
	return UUID("go-bookmarks:lock_owner:" + strings.TrimSpace(hostname) + ":" + strconv.Itoa(pid))
}
