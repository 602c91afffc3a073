// Package store persists scored analyses in libsql/Turso or a local SQLite
// file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	_ "modernc.org/sqlite"

	"github.com/namelens/pitchscore/internal/config"
)

const (
	driverLibsql = "libsql"
	driverSQLite = "sqlite"

	localBusyTimeoutMS = 5000
)

// Store wraps the database connection for pitchscore.
type Store struct {
	DB     *sql.DB
	driver string
	keep   int
	logger *logging.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped rows and other soft failures.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithRetention sets how many analyses are kept per identity.
func WithRetention(keep int) Option {
	return func(s *Store) {
		if keep > 0 {
			s.keep = keep
		}
	}
}

// Open initializes a store connection using the provided configuration.
func Open(ctx context.Context, cfg config.StoreConfig, opts ...Option) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = driverLibsql
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		dsn   string
		local bool
		err   error
	)
	switch driver {
	case driverLibsql:
		if !libsqlAvailable {
			return nil, errors.New("libsql driver requires a cgo build; set store.driver=sqlite")
		}
		dsn, err = buildLibsqlDSN(cfg)
		local = strings.TrimSpace(cfg.URL) == "" && !strings.HasPrefix(dsn, "libsql:")
	case driverSQLite:
		dsn, err = buildSQLiteDSN(cfg)
		local = true
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}

	if local {
		if err := configureLocal(ctx, db, dsn); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s store: %w", driver, err)
	}

	s := &Store{DB: db, driver: driver, keep: DefaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Ping verifies the connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	return s.DB.PingContext(ctx)
}

// configureLocal serializes access to a local database file and enables WAL.
func configureLocal(ctx context.Context, db *sql.DB, dsn string) error {
	db.SetMaxOpenConns(1)

	var timeout int
	if err := db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", localBusyTimeoutMS)).Scan(&timeout); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("configure busy_timeout: %w", err)
	}
	if isMemoryDSN(dsn) {
		return nil
	}
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("configure journal_mode: %w", err)
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func buildLibsqlDSN(cfg config.StoreConfig) (string, error) {
	if dsn := strings.TrimSpace(cfg.URL); dsn != "" {
		return addAuthToken(dsn, cfg.AuthToken)
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", errors.New("store path or url is required")
	}

	if path == ":memory:" {
		return path, nil
	}

	if strings.HasPrefix(path, "file:") {
		localPath, err := extractFilePath(path)
		if err != nil {
			return "", err
		}
		if err := ensureStoreDir(localPath); err != nil {
			return "", err
		}
		return path, nil
	}

	if strings.HasPrefix(path, "libsql:") {
		return path, nil
	}

	if err := ensureStoreDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func buildSQLiteDSN(cfg config.StoreConfig) (string, error) {
	if strings.TrimSpace(cfg.URL) != "" {
		return "", errors.New("store.url requires the libsql driver")
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", errors.New("store path is required")
	}
	if path == ":memory:" {
		return path, nil
	}

	localPath := path
	if strings.HasPrefix(path, "file:") {
		extracted, err := extractFilePath(path)
		if err != nil {
			return "", err
		}
		localPath = extracted
	} else {
		path = "file:" + filepath.Clean(path)
	}
	if err := ensureStoreDir(localPath); err != nil {
		return "", err
	}
	return path, nil
}

func addAuthToken(dsn string, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}

	query := parsed.Query()
	if query.Get("authToken") == "" {
		query.Set("authToken", token)
		parsed.RawQuery = query.Encode()
	}

	return parsed.String(), nil
}

func extractFilePath(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}

	if parsed.Path != "" {
		return strings.TrimPrefix(parsed.Path, "//"), nil
	}

	return strings.TrimPrefix(parsed.Opaque, "//"), nil
}

func ensureStoreDir(path string) error {
	if strings.TrimSpace(path) == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}

	// #nosec G301 -- data directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
