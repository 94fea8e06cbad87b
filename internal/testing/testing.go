// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/repositories"
	"github.com/desertthunder/youfeed/internal/services"
	"github.com/desertthunder/youfeed/internal/shared"
)

// NewCatalog returns a migrated in-memory catalog that is closed when the test ends.
func NewCatalog(t *testing.T) *repositories.Catalog {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return repositories.NewCatalog(db)
}

// MockFeed is a test double for [services.FeedProvider].
//
// Pages are keyed by "<kind>:<resource>" for first pages and by the next link for continuations.
type MockFeed struct {
	mu        sync.Mutex
	Pages     map[string]*services.FeedPage
	Users     map[string]*services.FeedUser
	Suspended map[string]bool
	Probes    map[string][]byte
	PageErr   error

	UserCalls  map[string]int
	PageCalls  int
	ProbeCalls map[string]int
}

// NewMockFeed creates an empty [MockFeed].
func NewMockFeed() *MockFeed {
	return &MockFeed{
		Pages:      map[string]*services.FeedPage{},
		Users:      map[string]*services.FeedUser{},
		Suspended:  map[string]bool{},
		Probes:     map[string][]byte{},
		UserCalls:  map[string]int{},
		ProbeCalls: map[string]int{},
	}
}

// PageKey builds the key under which a first page is registered.
func PageKey(kind models.SourceType, resource string) string {
	return string(kind) + ":" + resource
}

func (m *MockFeed) FetchPage(ctx context.Context, req services.PageRequest) (*services.FeedPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.PageCalls++

	if m.PageErr != nil {
		return nil, m.PageErr
	}

	key := req.Next
	if key == "" {
		key = PageKey(req.Kind, req.Resource)
	}
	page, ok := m.Pages[key]
	if !ok {
		return nil, fmt.Errorf("%w: no page %s", shared.ErrAPIRequest, key)
	}
	return page, nil
}

func (m *MockFeed) FetchUser(ctx context.Context, userID string) (*services.FeedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UserCalls[userID]++

	if m.Suspended[userID] {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserSuspended, userID)
	}
	u, ok := m.Users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown user %s", shared.ErrAPIRequest, userID)
	}
	return u, nil
}

func (m *MockFeed) ProbeVideo(ctx context.Context, videoID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbeCalls[videoID]++

	if p, ok := m.Probes[videoID]; ok {
		return p, nil
	}
	return []byte("<entry/>"), nil
}

// MockResolver is a test double for [services.VideoResolver].
type MockResolver struct {
	mu      sync.Mutex
	Formats map[string]map[models.Format]string
	Err     error
	Calls   map[string]int
}

// NewMockResolver creates an empty [MockResolver].
func NewMockResolver() *MockResolver {
	return &MockResolver{Formats: map[string]map[models.Format]string{}, Calls: map[string]int{}}
}

func (m *MockResolver) Resolve(ctx context.Context, videoID string) (map[models.Format]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[videoID]++

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Formats[videoID], nil
}

// MockDownloader is a test double for [services.Downloader] that writes the URL into dest.
//
// The first FailFirst attempts for each URL fail; URLs in AlwaysFail never succeed.
type MockDownloader struct {
	mu         sync.Mutex
	FailFirst  int
	AlwaysFail map[string]bool
	Attempts   map[string]int
}

// NewMockDownloader creates a [MockDownloader] failing the first failFirst attempts per URL.
func NewMockDownloader(failFirst int) *MockDownloader {
	return &MockDownloader{FailFirst: failFirst, AlwaysFail: map[string]bool{}, Attempts: map[string]int{}}
}

func (m *MockDownloader) Download(ctx context.Context, url, dest string, progress services.ProgressFunc) (int64, error) {
	m.mu.Lock()
	m.Attempts[url]++
	attempt := m.Attempts[url]
	always := m.AlwaysFail[url]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if always || attempt <= m.FailFirst {
		return 0, fmt.Errorf("%w: attempt %d", shared.ErrDownloadFailed, attempt)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(dest, []byte(url), 0644); err != nil {
		return 0, err
	}
	if progress != nil {
		progress(int64(len(url)), int64(len(url)))
	}
	return int64(len(url)), nil
}

// TotalAttempts sums attempts across URLs.
func (m *MockDownloader) TotalAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.Attempts {
		n += a
	}
	return n
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
