// Package gitstore implements the remote snippet contract on top of a
// local git worktree: every document lives in its own repository, every
// update is a commit, and the commit hash doubles as the optimistic
// concurrency token. It is the reference store for self-hosted sync.
package gitstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"

	"github.com/goliatone/go-bookmarks/pkg/interfaces"
)

const metaFile = "snippet.json"

// Options configure the store. Author/Email are stamped on commits.
type Options struct {
	BaseDir string
	Author  string
	Email   string
	Clock   func() time.Time
}

// Store keeps one git repository per snippet under BaseDir.
type Store struct {
	baseDir string
	author  string
	email   string
	clock   func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

type snippetMeta struct {
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

// New creates a git-backed snippet store rooted at opts.BaseDir.
func New(opts Options) (*Store, error) {
	if opts.BaseDir == "" {
		return nil, errors.New("gitstore: base directory is required")
	}
	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("gitstore: create base dir: %w", err)
	}
	author := opts.Author
	if author == "" {
		author = "bookmarks"
	}
	email := opts.Email
	if email == "" {
		email = "bookmarks@localhost"
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		baseDir: opts.BaseDir,
		author:  author,
		email:   email,
		clock:   clock,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) Create(ctx context.Context, req interfaces.CreateSnippetRequest) (interfaces.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Snippet{}, err
	}
	id := uuid.NewString()
	lock := s.documentLock(id)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return interfaces.Snippet{}, fmt.Errorf("gitstore: create repo dir: %w", err)
	}
	repo, err := git.PlainInit(path, false)
	if err != nil {
		return interfaces.Snippet{}, fmt.Errorf("gitstore: init repo: %w", err)
	}

	meta := snippetMeta{Filename: req.Filename, Description: req.Description}
	hash, err := s.commit(repo, path, meta, req.Content, "Create document")
	if err != nil {
		return interfaces.Snippet{}, err
	}
	return interfaces.Snippet{
		ID:          id,
		Filename:    req.Filename,
		Description: req.Description,
		Content:     req.Content,
		Version:     hash.String(),
		UpdatedAt:   s.clock(),
	}, nil
}

func (s *Store) Read(ctx context.Context, id string) (interfaces.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Snippet{}, err
	}
	lock := s.documentLock(id)
	lock.Lock()
	defer lock.Unlock()

	repo, meta, err := s.open(id)
	if err != nil {
		return interfaces.Snippet{}, err
	}
	head, err := repo.Head()
	if err != nil {
		return interfaces.Snippet{}, fmt.Errorf("gitstore: resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(head.Hash())
	if err != nil {
		return interfaces.Snippet{}, fmt.Errorf("gitstore: read commit: %w", err)
	}
	content, err := readFileFromCommit(commitObj, meta.Filename)
	if err != nil {
		return interfaces.Snippet{}, err
	}
	return interfaces.Snippet{
		ID:          id,
		Filename:    meta.Filename,
		Description: meta.Description,
		Content:     content,
		Version:     head.Hash().String(),
		UpdatedAt:   commitObj.Author.When,
	}, nil
}

func (s *Store) Update(ctx context.Context, req interfaces.UpdateSnippetRequest) (interfaces.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Snippet{}, err
	}
	lock := s.documentLock(req.ID)
	lock.Lock()
	defer lock.Unlock()

	repo, meta, err := s.open(req.ID)
	if err != nil {
		return interfaces.Snippet{}, err
	}
	head, err := repo.Head()
	if err != nil {
		return interfaces.Snippet{}, fmt.Errorf("gitstore: resolve head: %w", err)
	}
	if current := head.Hash().String(); current != req.ExpectedVersion {
		return interfaces.Snippet{}, &interfaces.VersionMismatchError{
			ID:       req.ID,
			Expected: req.ExpectedVersion,
			Actual:   current,
		}
	}

	if req.Description != "" {
		meta.Description = req.Description
	}
	message := req.Description
	if message == "" {
		message = "Update document"
	}
	hash, err := s.commit(repo, s.repoPath(req.ID), meta, req.Content, message)
	if err != nil {
		return interfaces.Snippet{}, err
	}
	return interfaces.Snippet{
		ID:          req.ID,
		Filename:    meta.Filename,
		Description: meta.Description,
		Content:     req.Content,
		Version:     hash.String(),
		UpdatedAt:   s.clock(),
	}, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := os.Stat(s.repoPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("gitstore: stat repo: %w", err)
	}
	return true, nil
}

func (s *Store) FindByFilename(ctx context.Context, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", interfaces.ErrSnippetNotFound
		}
		return "", fmt.Errorf("gitstore: scan base dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		if meta.Filename == filename {
			return entry.Name(), nil
		}
	}
	return "", interfaces.ErrSnippetNotFound
}

func (s *Store) open(id string) (*git.Repository, snippetMeta, error) {
	repo, err := git.PlainOpen(s.repoPath(id))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, snippetMeta{}, interfaces.ErrSnippetNotFound
		}
		return nil, snippetMeta{}, fmt.Errorf("gitstore: open repo: %w", err)
	}
	meta, err := s.readMeta(id)
	if err != nil {
		return nil, snippetMeta{}, err
	}
	return repo, meta, nil
}

func (s *Store) readMeta(id string) (snippetMeta, error) {
	raw, err := os.ReadFile(filepath.Join(s.repoPath(id), metaFile))
	if err != nil {
		return snippetMeta{}, fmt.Errorf("gitstore: read meta: %w", err)
	}
	var meta snippetMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return snippetMeta{}, fmt.Errorf("gitstore: decode meta: %w", err)
	}
	return meta, nil
}

func (s *Store) commit(repo *git.Repository, path string, meta snippetMeta, content, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, metaFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: write meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, meta.Filename), []byte(content), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: write document: %w", err)
	}
	if _, err := worktree.Add(metaFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: stage meta: %w", err)
	}
	if _, err := worktree.Add(meta.Filename); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: stage document: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  s.author,
			Email: s.email,
			When:  s.clock(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitstore: commit: %w", err)
	}
	return hash, nil
}

func (s *Store) repoPath(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) documentLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func readFileFromCommit(commitObj *object.Commit, filename string) (string, error) {
	file, err := commitObj.File(filename)
	if err != nil {
		return "", fmt.Errorf("gitstore: load %s from commit: %w", filename, err)
	}
	content, err := file.Contents()
	if err != nil {
		return "", fmt.Errorf("gitstore: read %s: %w", filename, err)
	}
	return content, nil
}

var _ interfaces.RemoteRepository = (*Store)(nil)
