package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dom/document-viewer/internal/api"
	"github.com/dom/document-viewer/internal/config"
	"github.com/dom/document-viewer/internal/docstore"
	"github.com/dom/document-viewer/internal/logging"
	"github.com/dom/document-viewer/internal/repository"
	"github.com/dom/document-viewer/internal/repository/memory"
	repoPostgres "github.com/dom/document-viewer/internal/repository/postgres"
	"github.com/dom/document-viewer/internal/security"
	"github.com/dom/document-viewer/internal/service"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB starts a PostgreSQL testcontainer and migrates it. The test is
// skipped when no container provider is available.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_document_viewer"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	testDB.DSN = dsn

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	testDB.DB = db

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"document_permissions",
		"documents",
		"sessions",
		"group_memberships",
		"user_groups",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestConfig returns a configuration suitable for testing
func TestConfig(t *testing.T) *config.Config {
	root := t.TempDir()
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		Store:              config.StoreMemory,
		PDFResultsDir:      root,
		PDFsDir:            filepath.Join(root, "pdfs"),
		CORSAllowedOrigins: "*",
		LogLevel:           "error",
		LogFormat:          "text",
	}
}

// TestHasher hashes at bcrypt's minimum cost to keep tests fast.
func TestHasher() *security.Hasher {
	return security.NewHasher(bcrypt.MinCost)
}

// Env is the repositories, document store and services of one test, backed
// by the in-memory store.
type Env struct {
	Repos    *repository.Repositories
	Store    *docstore.Store
	Services *service.Services
	Clock    *Clock
	Config   *config.Config
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	cfg := TestConfig(t)
	clock := NewClock()
	repos := memory.NewRepositories()
	store := docstore.New(cfg.PDFResultsDir, cfg.PDFsDir)
	services := service.NewServices(repos, store, TestHasher(), logging.Discard(), service.WithClock(clock.Now))

	return &Env{
		Repos:    repos,
		Store:    store,
		Services: services,
		Clock:    clock,
		Config:   cfg,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	*Env
	Server *httptest.Server
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithLogger(t, logging.Discard())
}

// NewTestServerWithLogger is NewTestServer with the router logging to log.
func NewTestServerWithLogger(t *testing.T, log *slog.Logger) *TestServer {
	t.Helper()

	env := NewEnv(t)
	router := api.NewRouter(env.Services, env.Config, log)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
	})

	return &TestServer{Env: env, Server: server}
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}
