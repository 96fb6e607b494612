package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/pathx"
	"github.com/perfcanvas/scriptstore/internal/server/models"
)

// Commit-message trailers used to round-trip entry metadata that git has no
// native slot for.
const (
	encodingTrailer = "X-Encoding:"
	propTrailer     = "X-Prop:"
)

// keepFile marks otherwise-empty directories so git tracks them. It is
// hidden from listings.
const keepFile = ".gitkeep"

// GitClient implements Client over per-user git repositories stored below a
// root directory. A single instance serves all users; commits to the same
// repository are serialized because git worktrees do not tolerate
// concurrent mutation.
type GitClient struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	hookMu sync.RWMutex
	hooks  []PostCommitHook
}

// NewGitClient returns a client storing user repositories under root.
func NewGitClient(root string) *GitClient {
	return &GitClient{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *GitClient) repoDir(userID string) string {
	return filepath.Join(c.root, userID)
}

// repoLock returns the mutex serializing commits to one repository.
func (c *GitClient) repoLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[userID] = l
	}
	return l
}

func (c *GitClient) RegisterPostCommitHook(hook PostCommitHook) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.hooks = append(c.hooks, hook)
}

func (c *GitClient) firePostCommit(repoName string) {
	c.hookMu.RLock()
	hooks := make([]PostCommitHook, len(c.hooks))
	copy(hooks, c.hooks)
	c.hookMu.RUnlock()
	for _, h := range hooks {
		h(repoName)
	}
}

func (c *GitClient) HasRepository(userID string) bool {
	_, err := git.PlainOpen(c.repoDir(userID))
	return err == nil
}

func (c *GitClient) CreateRepository(ctx context.Context, userID string) error {
	dir := c.repoDir(userID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create repository dir %s: %w", dir, err)
	}
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return fmt.Errorf("init repository for %s: %w", userID, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree for %s: %w", userID, err)
	}
	// Seed HEAD so revision resolution never has to special-case a
	// reference-less repository.
	_, err = wt.Commit("Initialize repository", &git.CommitOptions{
		Author:            signature(userID),
		AllowEmptyCommits: true,
	})
	if err != nil {
		return fmt.Errorf("initial commit for %s: %w", userID, err)
	}
	return nil
}

func (c *GitClient) open(userID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(c.repoDir(userID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("repository %s: %w", userID, common.ErrorRepositoryMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", userID, err)
	}
	return repo, nil
}

// resolve maps a Revision to a commit.
func (c *GitClient) resolve(repo *git.Repository, rev Revision) (*object.Commit, error) {
	var hash plumbing.Hash
	if rev.IsHead() {
		ref, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolve HEAD: %w", err)
		}
		hash = ref.Hash()
	} else {
		h, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err != nil {
			return nil, fmt.Errorf("resolve revision %s: %w", rev, err)
		}
		hash = *h
	}
	return repo.CommitObject(hash)
}

func (c *GitClient) FindAll(ctx context.Context, user models.User) ([]models.FileEntry, error) {
	return c.FindAllAt(ctx, user, "", Head)
}

func (c *GitClient) FindAllAt(ctx context.Context, user models.User, path string, rev Revision) ([]models.FileEntry, error) {
	repo, err := c.open(user.UserID)
	if err != nil {
		return nil, err
	}
	commit, err := c.resolve(repo, rev)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree at %s: %w", commit.Hash, err)
	}

	prefix := ""
	if path != "" {
		sub, err := tree.Tree(path)
		if errors.Is(err, object.ErrDirectoryNotFound) {
			// Path addresses a single file, not a directory.
			entry, ferr := c.fileEntryAt(repo, tree, commit, path, false)
			if ferr != nil {
				return nil, ferr
			}
			return []models.FileEntry{*entry}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("subtree %s: %w", path, err)
		}
		tree = sub
		prefix = path
	}

	entries, err := c.walkTree(repo, tree, prefix, commit)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// walkTree flattens a tree into metadata-only entries. The keep file is
// hidden; the directories it keeps alive show up as DIR entries.
func (c *GitClient) walkTree(repo *git.Repository, tree *object.Tree, prefix string, commit *object.Commit) ([]models.FileEntry, error) {
	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	var entries []models.FileEntry
	for {
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("walk tree: %w", err)
		}
		full := pathx.Join(prefix, name)
		if entry.Mode == filemode.Dir {
			entries = append(entries, models.FileEntry{
				Path:         full,
				FileType:     models.FileTypeDir,
				Revision:     commit.Hash.String(),
				LastModified: commit.Author.When,
			})
			continue
		}
		if filepath.Base(name) == keepFile {
			continue
		}
		blob, err := repo.BlobObject(entry.Hash)
		if err != nil {
			return nil, fmt.Errorf("blob %s: %w", full, err)
		}
		entries = append(entries, models.FileEntry{
			Path:         full,
			FileType:     models.FileTypeFile,
			Size:         blob.Size,
			Revision:     commit.Hash.String(),
			LastModified: commit.Author.When,
		})
	}
	return entries, nil
}

func (c *GitClient) FindOne(ctx context.Context, user models.User, path string, rev Revision) (*models.FileEntry, error) {
	repo, err := c.open(user.UserID)
	if err != nil {
		return nil, err
	}
	commit, err := c.resolve(repo, rev)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree at %s: %w", commit.Hash, err)
	}
	return c.fileEntryAt(repo, tree, commit, path, true)
}

// fileEntryAt builds a FileEntry for path in tree, optionally loading the
// content. Description, encoding and properties come from the newest commit
// touching the path.
func (c *GitClient) fileEntryAt(repo *git.Repository, tree *object.Tree, commit *object.Commit, path string, withContent bool) (*models.FileEntry, error) {
	if _, err := tree.Tree(path); err == nil {
		return &models.FileEntry{
			Path:         path,
			FileType:     models.FileTypeDir,
			Revision:     commit.Hash.String(),
			LastModified: commit.Author.When,
		}, nil
	}

	file, err := tree.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("entry %s: %w", path, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", path, err)
	}

	entry := &models.FileEntry{
		Path:     path,
		FileType: models.FileTypeFile,
		Size:     file.Blob.Size,
		Revision: commit.Hash.String(),
	}

	if withContent {
		contents, err := file.Contents()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		entry.Content = []byte(contents)
	}

	last, err := c.lastCommitFor(repo, commit, path)
	if err != nil {
		return nil, err
	}
	if last != nil {
		desc, encoding, props := parseCommitMessage(last.Message)
		entry.Description = desc
		entry.Encoding = encoding
		entry.Properties = props
		entry.Revision = last.Hash.String()
		entry.LastModified = last.Author.When
	}
	return entry, nil
}

// lastCommitFor returns the newest commit at or before from that touched
// path, or nil when history carries none.
func (c *GitClient) lastCommitFor(repo *git.Repository, from *object.Commit, path string) (*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: from.Hash, FileName: &path})
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", path, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", path, err)
	}
	return commit, nil
}

func (c *GitClient) HasOne(ctx context.Context, user models.User, path string) (bool, error) {
	repo, err := c.open(user.UserID)
	if err != nil {
		return false, err
	}
	commit, err := c.resolve(repo, Head)
	if err != nil {
		return false, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return false, err
	}
	if _, err := tree.File(path); err == nil {
		return true, nil
	}
	if _, err := tree.Tree(path); err == nil {
		return true, nil
	}
	return false, nil
}

func (c *GitClient) Save(ctx context.Context, user models.User, entry *models.FileEntry) error {
	if entry.Path == "" {
		return common.ErrorEmptyPath
	}

	lock := c.repoLock(user.UserID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := c.open(user.UserID)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", user.UserID, err)
	}

	existed, _ := c.HasOne(ctx, user, entry.Path)

	dir := c.repoDir(user.UserID)
	gitPath := entry.Path
	if entry.IsDir() {
		gitPath = pathx.Join(entry.Path, keepFile)
		if err := os.MkdirAll(filepath.Join(dir, filepath.FromSlash(entry.Path)), 0o750); err != nil {
			return fmt.Errorf("mkdir %s: %w", entry.Path, err)
		}
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(gitPath)), nil, 0o640); err != nil {
			return fmt.Errorf("write %s: %w", gitPath, err)
		}
	} else {
		full := filepath.Join(dir, filepath.FromSlash(entry.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			return fmt.Errorf("mkdir for %s: %w", entry.Path, err)
		}
		if err := os.WriteFile(full, entry.Content, 0o640); err != nil {
			return fmt.Errorf("write %s: %w", entry.Path, err)
		}
	}

	if _, err := wt.Add(gitPath); err != nil {
		return fmt.Errorf("stage %s: %w", gitPath, err)
	}

	hash, err := wt.Commit(buildCommitMessage(entry, existed), &git.CommitOptions{
		Author: signature(user.UserID),
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", entry.Path, err)
	}
	entry.Revision = hash.String()

	c.firePostCommit(user.UserID)
	return nil
}

func (c *GitClient) Delete(ctx context.Context, user models.User, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	lock := c.repoLock(user.UserID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := c.open(user.UserID)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", user.UserID, err)
	}

	dir := c.repoDir(user.UserID)
	for _, p := range paths {
		if p == "" {
			return common.ErrorEmptyPath
		}
		if err := c.removePath(wt, dir, p); err != nil {
			return err
		}
	}

	_, err = wt.Commit(fmt.Sprintf("Delete %s", strings.Join(paths, ", ")), &git.CommitOptions{
		Author: signature(user.UserID),
	})
	if err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	c.firePostCommit(user.UserID)
	return nil
}

// removePath unstages and deletes a file or a whole directory subtree.
func (c *GitClient) removePath(wt *git.Worktree, repoDir, p string) error {
	full := filepath.Join(repoDir, filepath.FromSlash(p))
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", p, common.ErrorNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	if !info.IsDir() {
		if _, err := wt.Remove(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		return nil
	}

	err = filepath.Walk(full, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}
		rel, err := filepath.Rel(repoDir, path)
		if err != nil {
			return err
		}
		_, err = wt.Remove(filepath.ToSlash(rel))
		return err
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return os.RemoveAll(full)
}

func (c *GitClient) WriteContentTo(ctx context.Context, user models.User, fromPath, toDir string) error {
	repo, err := c.open(user.UserID)
	if err != nil {
		return err
	}
	commit, err := c.resolve(repo, Head)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	if file, err := tree.File(fromPath); err == nil {
		return writeBlob(file, filepath.Join(toDir, filepath.Base(fromPath)))
	}

	sub, err := tree.Tree(fromPath)
	if errors.Is(err, object.ErrDirectoryNotFound) {
		return fmt.Errorf("export %s: %w", fromPath, common.ErrorNotFound)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", fromPath, err)
	}

	return sub.Files().ForEach(func(f *object.File) error {
		return writeBlob(f, filepath.Join(toDir, filepath.FromSlash(f.Name)))
	})
}

func writeBlob(file *object.File, dest string) error {
	contents, err := file.Contents()
	if err != nil {
		return fmt.Errorf("read %s: %w", file.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(contents), 0o640)
}

func signature(userID string) *object.Signature {
	return &object.Signature{
		Name:  userID,
		Email: userID + "@scriptstore.local",
		When:  time.Now(),
	}
}

// buildCommitMessage serializes the entry description plus metadata
// trailers into the commit message.
func buildCommitMessage(entry *models.FileEntry, existed bool) string {
	desc := entry.Description
	if desc == "" {
		verb := "Create"
		if existed {
			verb = "Update"
		}
		desc = fmt.Sprintf("%s %s", verb, entry.Path)
	}

	var b strings.Builder
	b.WriteString(desc)
	if entry.Encoding != "" || len(entry.Properties) > 0 {
		b.WriteString("\n")
		if entry.Encoding != "" {
			fmt.Fprintf(&b, "\n%s %s", encodingTrailer, entry.Encoding)
		}
		keys := make([]string, 0, len(entry.Properties))
		for k := range entry.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n%s %s=%s", propTrailer, k, entry.Properties[k])
		}
	}
	return b.String()
}

// parseCommitMessage is the inverse of buildCommitMessage.
func parseCommitMessage(msg string) (desc, encoding string, props map[string]string) {
	var descLines []string
	for _, line := range strings.Split(msg, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, encodingTrailer):
			encoding = strings.TrimSpace(strings.TrimPrefix(trimmed, encodingTrailer))
		case strings.HasPrefix(trimmed, propTrailer):
			kv := strings.TrimSpace(strings.TrimPrefix(trimmed, propTrailer))
			if k, v, ok := strings.Cut(kv, "="); ok {
				if props == nil {
					props = make(map[string]string)
				}
				props[k] = v
			}
		default:
			descLines = append(descLines, line)
		}
	}
	desc = strings.TrimSpace(strings.Join(descLines, "\n"))
	return desc, encoding, props
}
