package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	csvrepo "github.com/yungbote/csvshare-backend/internal/data/repos/csvfile"
	"github.com/yungbote/csvshare-backend/internal/data/repos/testutil"
	userrepo "github.com/yungbote/csvshare-backend/internal/data/repos/user"
	"github.com/yungbote/csvshare-backend/internal/platform/cache"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/platform/storage"
	"github.com/yungbote/csvshare-backend/internal/realtime"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (n *recordingNotifier) Publish(ev realtime.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []realtime.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]realtime.Event(nil), n.events...)
}

type memCache struct {
	mu      sync.Mutex
	entries map[uint]*cache.CSVContent
}

func newMemCache() *memCache { return &memCache{entries: map[uint]*cache.CSVContent{}} }

func (c *memCache) Get(_ context.Context, id uint) (*cache.CSVContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[id]
	return v, ok
}

func (c *memCache) Set(_ context.Context, id uint, content *cache.CSVContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = content
}

func (c *memCache) Invalidate(_ context.Context, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *memCache) Close() error { return nil }

type fixture struct {
	db       *gorm.DB
	log      *logger.Logger
	users    userrepo.UserRepo
	files    csvrepo.CSVFileRepo
	store    storage.FileStore
	cache    *memCache
	notifier *recordingNotifier
	auth     AuthService
	csv      CSVService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	store, err := storage.NewLocalStore(log, t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	f := &fixture{
		db:       db,
		log:      log,
		users:    userrepo.NewUserRepo(db, log),
		files:    csvrepo.NewCSVFileRepo(db, log),
		store:    store,
		cache:    newMemCache(),
		notifier: &recordingNotifier{},
	}
	f.auth = NewAuthService(db, log, f.users, "test-secret", 0)
	f.csv = NewCSVService(db, log, f.files, store, f.cache, f.notifier, 1<<20)
	return f
}
