// Package services contains the orchestration layer: the file entry
// service gluing the version-control store, the listing cache and the
// script handlers together, and the announcement service.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/logging"
	"github.com/perfcanvas/scriptstore/internal/pathx"
	"github.com/perfcanvas/scriptstore/internal/server/cache"
	"github.com/perfcanvas/scriptstore/internal/server/har"
	"github.com/perfcanvas/scriptstore/internal/server/models"
	"github.com/perfcanvas/scriptstore/internal/server/script"
	"github.com/perfcanvas/scriptstore/internal/server/vcs"
)

// placeholderURL is the sentinel the UI submits when the user has not
// entered a target URL yet. Entries generated for it carry no target host
// property.
const placeholderURL = "http://please_modify_this.com"

// DefaultListingRetryDelay is how long GetAll waits before its single
// retry against the store.
const DefaultListingRetryDelay = 3 * time.Second

const (
	provisionWorkers = 4
	provisionQueue   = 64
)

// FileEntryService exposes the per-user script repository: listing with a
// cache, versioned read/write/delete, lazy repository provisioning, script
// generation from templates and HAR conversion.
type FileEntryService struct {
	repo       vcs.Client
	cache      cache.EntryCache
	scripts    *script.Registry
	logger     logging.Logger
	retryDelay time.Duration

	prepareGroup singleflight.Group
	pool         *workerPool
}

// NewFileEntryService wires the service and registers the post-commit
// cache invalidation hook on the store.
func NewFileEntryService(repo vcs.Client, entryCache cache.EntryCache, scripts *script.Registry, logger logging.Logger, retryDelay time.Duration) *FileEntryService {
	if retryDelay <= 0 {
		retryDelay = DefaultListingRetryDelay
	}
	s := &FileEntryService{
		repo:       repo,
		cache:      entryCache,
		scripts:    scripts,
		logger:     logger.With("module", "file_entry_service"),
		retryDelay: retryDelay,
		pool:       newWorkerPool(provisionWorkers, provisionQueue),
	}
	repo.RegisterPostCommitHook(s.InvalidateCache)
	return s
}

// Close drains the provisioning worker pool.
func (s *FileEntryService) Close() {
	s.pool.Shutdown()
}

// InvalidateCache drops the cached listing for the user. Called by the
// store's post-commit hook; the service never invalidates on its own write
// path (the commit triggers the hook anyway).
func (s *FileEntryService) InvalidateCache(userID string) {
	ctx := context.Background()
	if err := s.cache.Evict(ctx, userID); err != nil {
		s.logger.Warn(ctx, "cache eviction failed", "user", userID, "error", err)
	}
}

// Prepare idempotently ensures the user's repository exists. Concurrent
// calls for the same user collapse into one creation attempt.
func (s *FileEntryService) Prepare(ctx context.Context, user models.User) error {
	_, err, _ := s.prepareGroup.Do(user.UserID, func() (any, error) {
		if s.repo.HasRepository(user.UserID) {
			return nil, nil
		}
		s.logger.Info(ctx, "creating repository", "user", user.UserID)
		return nil, s.repo.CreateRepository(ctx, user.UserID)
	})
	if err != nil {
		return fmt.Errorf("prepare repository for %s: %w", user.UserID, err)
	}
	return nil
}

// PrepareAsync dispatches Prepare to the worker pool. Nobody observes the
// outcome; failures are logged and a later operation against the missing
// repository surfaces its own error.
func (s *FileEntryService) PrepareAsync(user models.User) {
	s.pool.Submit(func() {
		ctx := context.Background()
		if err := s.Prepare(ctx, user); err != nil {
			s.logger.Error(ctx, "async repository provisioning failed",
				"user", user.UserID, "error", err)
		}
	})
}

// GetAll returns the full ordered listing for the user, metadata only.
// Served from the cache when possible; on a miss the store is queried with
// a single fixed-delay retry and the result cached.
func (s *FileEntryService) GetAll(ctx context.Context, user models.User) ([]models.FileEntry, error) {
	if err := s.Prepare(ctx, user); err != nil {
		return nil, err
	}

	if entries, ok, err := s.cache.Get(ctx, user.UserID); err == nil && ok {
		return entries, nil
	} else if err != nil {
		s.logger.Warn(ctx, "cache lookup failed", "user", user.UserID, "error", err)
	}

	var entries []models.FileEntry
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var ferr error
		entries, ferr = s.repo.FindAll(ctx, user)
		if ferr != nil {
			// One more chance for a transient store fault.
			return retry.RetryableError(ferr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", user.UserID, err)
	}

	if err := s.cache.Set(ctx, user.UserID, entries); err != nil {
		s.logger.Warn(ctx, "cache store failed", "user", user.UserID, "error", err)
	}
	return entries, nil
}

// GetAllAt is the uncached, path- and revision-scoped listing.
func (s *FileEntryService) GetAllAt(ctx context.Context, user models.User, path string, rev vcs.Revision) ([]models.FileEntry, error) {
	if err := s.Prepare(ctx, user); err != nil {
		return nil, err
	}
	return s.repo.FindAllAt(ctx, user, path, rev)
}

// GetOne returns a single entry including content.
func (s *FileEntryService) GetOne(ctx context.Context, user models.User, path string, rev vcs.Revision) (*models.FileEntry, error) {
	return s.repo.FindOne(ctx, user, path, rev)
}

// HasFileEntry reports whether an entry exists at path.
func (s *FileEntryService) HasFileEntry(ctx context.Context, user models.User, path string) (bool, error) {
	return s.repo.HasOne(ctx, user, path)
}

// Save persists the entry. Create versus update is decided by the store.
func (s *FileEntryService) Save(ctx context.Context, user models.User, entry *models.FileEntry) error {
	if entry.Path == "" {
		return common.ErrorEmptyPath
	}
	if err := s.Prepare(ctx, user); err != nil {
		return err
	}
	if entry.FileType == "" {
		entry.FileType = models.FileTypeFile
	}
	return s.repo.Save(ctx, user, entry)
}

// AddFolder creates a directory entry at join(path, folderName).
func (s *FileEntryService) AddFolder(ctx context.Context, user models.User, path, folderName, comment string) error {
	return s.Save(ctx, user, &models.FileEntry{
		Path:        pathx.Join(path, folderName),
		FileType:    models.FileTypeDir,
		Description: comment,
	})
}

// Delete removes basePath/name for every name in one commit.
func (s *FileEntryService) Delete(ctx context.Context, user models.User, basePath string, fileNames []string) error {
	paths := make([]string, 0, len(fileNames))
	for _, name := range fileNames {
		paths = append(paths, pathx.Join(basePath, name))
	}
	return s.repo.Delete(ctx, user, paths)
}

// DeleteOne removes a single path.
func (s *FileEntryService) DeleteOne(ctx context.Context, user models.User, path string) error {
	return s.repo.Delete(ctx, user, []string{path})
}

// WriteContentTo exports repository content into a local directory (used
// when distributing scripts to test agents).
func (s *FileEntryService) WriteContentTo(ctx context.Context, user models.User, fromPath, toDir string) error {
	return s.repo.WriteContentTo(ctx, user, fromPath, toDir)
}

// HandlerByKey resolves a script handler by language key.
func (s *FileEntryService) HandlerByKey(key string) (script.Handler, error) {
	h, ok := s.scripts.ByKey(key)
	if !ok {
		return nil, fmt.Errorf("handler %q: %w", key, common.ErrorUnknownHandler)
	}
	return h, nil
}

// HandlerFor resolves a script handler from an entry's extension.
func (s *FileEntryService) HandlerFor(entry *models.FileEntry) (script.Handler, error) {
	h, ok := s.scripts.ByPath(entry.Path)
	if !ok {
		return nil, fmt.Errorf("handler for %q: %w", entry.Path, common.ErrorUnknownHandler)
	}
	return h, nil
}

// loadTemplate renders a handler's script template for a quick test.
func (s *FileEntryService) loadTemplate(user models.User, handler script.Handler, url, name, options string) (string, error) {
	return handler.ScriptTemplate(map[string]any{
		"url":      url,
		"userName": user.UserName,
		"name":     name,
		"options":  options,
	})
}

// PrepareNewEntry builds a new in-memory entry whose content is the
// handler's rendered template. Project handlers scaffold and persist a
// whole layout themselves; in that case nil is returned, signaling there
// is no single entry left to save.
func (s *FileEntryService) PrepareNewEntry(ctx context.Context, user models.User, path, fileName, name, url string, handler script.Handler, libAndResource bool, options string) (*models.FileEntry, error) {
	if scaffolder, ok := handler.(script.ProjectScaffolder); ok {
		groovy, err := s.HandlerByKey("groovy")
		if err != nil {
			return nil, err
		}
		mainScript, err := s.loadTemplate(user, groovy, url, name, options)
		if err != nil {
			return nil, fmt.Errorf("render main script: %w", err)
		}
		if err := scaffolder.PrepareScaffold(ctx, user, path, fileName, name, url, libAndResource, mainScript, s); err != nil {
			return nil, fmt.Errorf("prepare scaffold: %w", err)
		}
		return nil, nil
	}

	content, err := s.loadTemplate(user, handler, url, name, options)
	if err != nil {
		return nil, fmt.Errorf("render script: %w", err)
	}

	entry := &models.FileEntry{
		Path:       pathx.Join(path, fileName),
		FileType:   models.FileTypeFile,
		Content:    []byte(content),
		Properties: map[string]string{},
	}
	if url != placeholderURL {
		entry.Properties["targetHosts"] = pathx.HostOf(url)
	}
	return entry, nil
}

// PrepareNewEntryForQuickTest creates and persists a script testing one
// URL, at the handler's default quick-test location under a path slug
// derived from the URL. Returns the quick-test script path.
func (s *FileEntryService) PrepareNewEntryForQuickTest(ctx context.Context, user models.User, url string, handler script.Handler) (string, error) {
	basePath, err := pathx.FromURL(url)
	if err != nil {
		return "", fmt.Errorf("derive path from %s: %w", url, err)
	}
	host := pathx.HostOf(url)
	quickTestPath := handler.DefaultQuickTestPath(basePath)

	if _, ok := handler.(script.ProjectScaffolder); ok {
		dir, file := pathx.Divide(basePath)
		if _, err := s.PrepareNewEntry(ctx, user, dir, file, host, url, handler, false, ""); err != nil {
			return "", err
		}
		return quickTestPath, nil
	}

	_, fileName := pathx.Divide(quickTestPath)
	entry, err := s.PrepareNewEntry(ctx, user, basePath, fileName, host, url, handler, false, "")
	if err != nil {
		return "", err
	}
	entry.Description = "Quick test for " + url
	if err := s.Save(ctx, user, entry); err != nil {
		return "", err
	}
	return quickTestPath, nil
}

// LoadHAR parses an uploaded HAR capture, optionally drops static
// resources and returns it pretty-printed.
func (s *FileEntryService) LoadHAR(raw []byte, removeStaticResource bool) (string, error) {
	h, err := har.Parse(raw)
	if err != nil {
		return "", err
	}
	if removeStaticResource {
		h = har.CleanStaticResources(h)
	}
	return har.PrettyPrint(h)
}

// ConvertToScript turns a HAR capture into one generated script per
// supported scripting language.
func (s *FileEntryService) ConvertToScript(raw []byte, removeStaticResource bool) (map[string]string, error) {
	h, err := har.Parse(raw)
	if err != nil {
		return nil, err
	}
	if removeStaticResource {
		h = har.CleanStaticResources(h)
	}

	params := har.TemplateParams(h)
	result := make(map[string]string, 2)
	for _, key := range []string{"groovy", "jython"} {
		handler, err := s.HandlerByKey(key)
		if err != nil {
			return nil, err
		}
		rendered, err := handler.ScriptTemplate(params)
		if err != nil {
			return nil, fmt.Errorf("render %s script: %w", key, err)
		}
		result[key] = rendered
	}
	return result, nil
}
