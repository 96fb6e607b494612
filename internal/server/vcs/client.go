// Package vcs defines the version-control client used by the file entry
// service and provides a git-backed implementation. Each user owns one
// repository under a common root directory; the repository name is the
// user id.
package vcs

import (
	"context"
	"strings"

	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// Revision addresses a committed state of a repository. The zero value,
// "-1" and "HEAD" (any case) all resolve to the latest commit; anything
// else is passed to the underlying store as-is (a commit hash for git).
type Revision string

// Head is the latest committed state.
const Head Revision = "-1"

// IsHead reports whether the revision resolves to the latest commit.
func (r Revision) IsHead() bool {
	return r == "" || r == "-1" || strings.EqualFold(string(r), "head")
}

// PostCommitHook is invoked after every successful commit with the name of
// the repository (the user id) that changed.
type PostCommitHook func(repoName string)

// Client is the capability set the file entry service consumes from the
// version-control store.
type Client interface {
	// CreateRepository creates the repository for the given user id. It is
	// an error to create a repository that already exists; callers check
	// HasRepository first.
	CreateRepository(ctx context.Context, userID string) error

	// HasRepository reports whether a repository exists for the user id.
	HasRepository(userID string) bool

	// FindAll returns metadata for every entry in the user's repository at
	// HEAD, ordered by path. Content is not populated.
	FindAll(ctx context.Context, user models.User) ([]models.FileEntry, error)

	// FindAllAt returns metadata for the entries under path at the given
	// revision.
	FindAllAt(ctx context.Context, user models.User, path string, rev Revision) ([]models.FileEntry, error)

	// FindOne returns a single entry including its content.
	FindOne(ctx context.Context, user models.User, path string, rev Revision) (*models.FileEntry, error)

	// HasOne reports whether an entry exists at path at HEAD.
	HasOne(ctx context.Context, user models.User, path string) (bool, error)

	// Save writes the entry as one commit. Create versus update is decided
	// by the store based on whether the path already exists.
	Save(ctx context.Context, user models.User, entry *models.FileEntry) error

	// Delete removes all given paths in one commit.
	Delete(ctx context.Context, user models.User, paths []string) error

	// WriteContentTo exports the file or subtree at fromPath into toDir.
	WriteContentTo(ctx context.Context, user models.User, fromPath, toDir string) error

	// RegisterPostCommitHook adds a hook fired after every commit made
	// through this client.
	RegisterPostCommitHook(hook PostCommitHook)
}
