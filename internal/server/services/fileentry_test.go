package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfcanvas/scriptstore/internal/common"
	"github.com/perfcanvas/scriptstore/internal/logging"
	"github.com/perfcanvas/scriptstore/internal/server/cache"
	"github.com/perfcanvas/scriptstore/internal/server/models"
	"github.com/perfcanvas/scriptstore/internal/server/script"
	"github.com/perfcanvas/scriptstore/internal/server/vcs"
)

var testUser = models.User{UserID: "alice", UserName: "Alice"}

// -------- test fakes --------

type fakeVCS struct {
	vcs.Client

	mu          sync.Mutex
	repos       map[string]bool
	createCalls int
	createDelay time.Duration

	entries      []models.FileEntry
	findAllCalls int
	findAllFails int

	saved   []*models.FileEntry
	deleted [][]string

	hooks []vcs.PostCommitHook
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{repos: map[string]bool{}}
}

func (f *fakeVCS) HasRepository(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repos[userID]
}

func (f *fakeVCS) CreateRepository(ctx context.Context, userID string) error {
	f.mu.Lock()
	f.createCalls++
	delay := f.createDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[userID] = true
	return nil
}

func (f *fakeVCS) FindAll(ctx context.Context, user models.User) ([]models.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findAllCalls++
	if f.findAllFails > 0 {
		f.findAllFails--
		return nil, errors.New("transient store fault")
	}
	return f.entries, nil
}

func (f *fakeVCS) Save(ctx context.Context, user models.User, entry *models.FileEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, entry)
	return nil
}

func (f *fakeVCS) Delete(ctx context.Context, user models.User, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, paths)
	return nil
}

func (f *fakeVCS) HasOne(ctx context.Context, user models.User, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Path == path {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeVCS) RegisterPostCommitHook(hook vcs.PostCommitHook) {
	f.hooks = append(f.hooks, hook)
}

// commit simulates the store reporting a post-commit event.
func (f *fakeVCS) commit(repoName string) {
	for _, h := range f.hooks {
		h(repoName)
	}
}

// -------- helpers --------

func newTestLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newService(t *testing.T, repo *fakeVCS) *FileEntryService {
	t.Helper()
	s := NewFileEntryService(repo, cache.NewMemoryCache(), script.DefaultRegistry(), newTestLogger(), 10*time.Millisecond)
	t.Cleanup(s.Close)
	return s
}

// -------- tests --------

func TestGetAllCreatesRepositoryOnce(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)
	ctx := context.Background()

	_, err := s.GetAll(ctx, testUser)
	require.NoError(t, err)
	_, err = s.GetAll(ctx, testUser)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.createCalls)
}

func TestPrepareConcurrent(t *testing.T) {
	repo := newFakeVCS()
	repo.createDelay = 20 * time.Millisecond
	s := newService(t, repo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Prepare(context.Background(), testUser))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, repo.createCalls)
}

func TestPrepareAsync(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)

	s.PrepareAsync(testUser)
	s.Close()

	assert.Equal(t, 1, repo.createCalls)
	assert.True(t, repo.HasRepository(testUser.UserID))
}

func TestGetAllUsesCache(t *testing.T) {
	repo := newFakeVCS()
	repo.entries = []models.FileEntry{{Path: "a.groovy", FileType: models.FileTypeFile}}
	s := newService(t, repo)
	ctx := context.Background()

	first, err := s.GetAll(ctx, testUser)
	require.NoError(t, err)
	second, err := s.GetAll(ctx, testUser)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.findAllCalls, "second listing must come from the cache")
}

func TestGetAllReloadsAfterPostCommit(t *testing.T) {
	repo := newFakeVCS()
	repo.entries = []models.FileEntry{{Path: "a.groovy"}}
	s := newService(t, repo)
	ctx := context.Background()

	_, err := s.GetAll(ctx, testUser)
	require.NoError(t, err)

	repo.entries = append(repo.entries, models.FileEntry{Path: "b.groovy"})
	repo.commit(testUser.UserID)

	entries, err := s.GetAll(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 2, repo.findAllCalls)
}

func TestGetAllRetriesOnceOnFailure(t *testing.T) {
	repo := newFakeVCS()
	repo.entries = []models.FileEntry{{Path: "a.groovy"}}
	repo.findAllFails = 1
	s := newService(t, repo)

	entries, err := s.GetAll(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 2, repo.findAllCalls)
}

func TestGetAllSurfacesAfterSingleRetry(t *testing.T) {
	repo := newFakeVCS()
	repo.findAllFails = 5
	s := newService(t, repo)

	_, err := s.GetAll(context.Background(), testUser)
	assert.ErrorContains(t, err, "transient store fault")
	assert.Equal(t, 2, repo.findAllCalls, "exactly one retry")
}

func TestSaveEmptyPath(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)

	err := s.Save(context.Background(), testUser, &models.FileEntry{})
	assert.ErrorIs(t, err, common.ErrorEmptyPath)
	assert.Empty(t, repo.saved)
	assert.Zero(t, repo.createCalls)
}

func TestSavePreparesRepository(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)

	entry := &models.FileEntry{Path: "a.groovy", Content: []byte("x")}
	require.NoError(t, s.Save(context.Background(), testUser, entry))

	assert.Equal(t, 1, repo.createCalls)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, models.FileTypeFile, repo.saved[0].FileType)
}

func TestDeleteBuildsFullPaths(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)

	require.NoError(t, s.Delete(context.Background(), testUser, "base", []string{"a.groovy", "b.groovy"}))
	require.Len(t, repo.deleted, 1)
	assert.Equal(t, []string{"base/a.groovy", "base/b.groovy"}, repo.deleted[0])
}

func TestAddFolder(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)

	require.NoError(t, s.AddFolder(context.Background(), testUser, "base", "lib", "the lib folder"))
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "base/lib", repo.saved[0].Path)
	assert.Equal(t, models.FileTypeDir, repo.saved[0].FileType)
	assert.Equal(t, "the lib folder", repo.saved[0].Description)
}

func TestPrepareNewEntry(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)
	handler, err := s.HandlerByKey("groovy")
	require.NoError(t, err)

	entry, err := s.PrepareNewEntry(context.Background(), testUser, "base", "test.groovy", "my test", "http://a.b.com/x", handler, false, "")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "base/test.groovy", entry.Path)
	assert.Contains(t, string(entry.Content), "http://a.b.com/x")
	assert.Equal(t, map[string]string{"targetHosts": "a.b.com"}, entry.Properties)
	assert.Empty(t, repo.saved, "the entry is not persisted yet")
}

func TestPrepareNewEntryPlaceholderURL(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)
	handler, err := s.HandlerByKey("groovy")
	require.NoError(t, err)

	entry, err := s.PrepareNewEntry(context.Background(), testUser, "base", "test.groovy", "my test", placeholderURL, handler, false, "")
	require.NoError(t, err)
	assert.Empty(t, entry.Properties)
}

func TestPrepareNewEntryProject(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)
	handler, err := s.HandlerByKey("groovy_maven")
	require.NoError(t, err)

	entry, err := s.PrepareNewEntry(context.Background(), testUser, "base", "proj", "my proj", "http://a.b.com/", handler, true, "")
	require.NoError(t, err)
	assert.Nil(t, entry, "project scaffolds have no single entry to return")

	paths := make([]string, 0, len(repo.saved))
	for _, e := range repo.saved {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "base/proj/pom.xml")
	assert.Contains(t, paths, "base/proj/src/main/groovy/TestRunner.groovy")
	assert.Contains(t, paths, "base/proj/lib")
	assert.Contains(t, paths, "base/proj/resources")
}

func TestPrepareNewEntryForQuickTest(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)
	handler, err := s.HandlerByKey("groovy")
	require.NoError(t, err)

	path, err := s.PrepareNewEntryForQuickTest(context.Background(), testUser, "http://a.b.com/x", handler)
	require.NoError(t, err)
	assert.Equal(t, "a.b.com/x/TestRunner.groovy", path)

	require.Len(t, repo.saved, 1, "exactly one entry is persisted")
	saved := repo.saved[0]
	assert.Equal(t, "a.b.com/x/TestRunner.groovy", saved.Path)
	assert.Equal(t, "Quick test for http://a.b.com/x", saved.Description)
}

func TestPrepareNewEntryForQuickTestProject(t *testing.T) {
	repo := newFakeVCS()
	s := newService(t, repo)
	handler, err := s.HandlerByKey("groovy_maven")
	require.NoError(t, err)

	path, err := s.PrepareNewEntryForQuickTest(context.Background(), testUser, "http://a.b.com/x", handler)
	require.NoError(t, err)
	assert.Equal(t, "a.b.com/x/src/main/groovy/TestRunner.groovy", path)

	for _, e := range repo.saved {
		assert.NotContains(t, e.Description, "Quick test for", "no standalone quick-test entry")
	}
}

func TestHasFileEntry(t *testing.T) {
	repo := newFakeVCS()
	repo.entries = []models.FileEntry{{Path: "a.groovy", FileType: models.FileTypeFile}}
	s := newService(t, repo)
	ctx := context.Background()

	ok, err := s.HasFileEntry(ctx, testUser, "a.groovy")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasFileEntry(ctx, testUser, "b.groovy")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandlerByKeyUnknown(t *testing.T) {
	s := newService(t, newFakeVCS())
	_, err := s.HandlerByKey("cobol")
	assert.ErrorIs(t, err, common.ErrorUnknownHandler)
}

func TestHandlerFor(t *testing.T) {
	s := newService(t, newFakeVCS())
	h, err := s.HandlerFor(&models.FileEntry{Path: "x/t.py"})
	require.NoError(t, err)
	assert.Equal(t, "jython", h.Key())
}

const sampleHAR = `{
	"log": {
		"entries": [
			{
				"request": {
					"method": "GET",
					"url": "http://a.b.com/page",
					"headers": [
						{"name": "Host", "value": "a.b.com"},
						{"name": "Accept", "value": "text/html"}
					]
				},
				"response": {
					"status": 200,
					"headers": [{"name": "Content-Type", "value": "text/html"}]
				}
			},
			{
				"request": {
					"method": "GET",
					"url": "http://a.b.com/logo.png",
					"headers": [
						{"name": "Host", "value": "a.b.com"},
						{"name": "Accept", "value": "text/html"}
					]
				},
				"response": {
					"status": 200,
					"headers": [{"name": "Content-Type", "value": "image/png"}]
				}
			}
		]
	}
}`

func TestConvertToScript(t *testing.T) {
	s := newService(t, newFakeVCS())

	result, err := s.ConvertToScript([]byte(sampleHAR), false)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Contains(t, result["groovy"], "http://a.b.com/page")
	assert.Contains(t, result["jython"], "http://a.b.com/page")
	assert.Contains(t, result["groovy"], `NVPair("Accept", "text/html")`, "common header declared once")
}

func TestConvertToScriptRemovesStaticResources(t *testing.T) {
	s := newService(t, newFakeVCS())

	result, err := s.ConvertToScript([]byte(sampleHAR), true)
	require.NoError(t, err)
	assert.NotContains(t, result["groovy"], "logo.png")
}

func TestConvertToScriptMalformed(t *testing.T) {
	s := newService(t, newFakeVCS())

	_, err := s.ConvertToScript([]byte("{"), false)
	assert.ErrorIs(t, err, common.ErrorMalformedHAR)
}

func TestLoadHAR(t *testing.T) {
	s := newService(t, newFakeVCS())

	out, err := s.LoadHAR([]byte(sampleHAR), true)
	require.NoError(t, err)
	assert.Contains(t, out, "http://a.b.com/page")
	assert.NotContains(t, out, "logo.png")
}
