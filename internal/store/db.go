package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("store.unsupported_dialect")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store.not_found")

	errEmptyDatabaseURL    = errors.New("store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("store.sqlite.empty_path")
	errUnsupportedNoScheme = errors.New("store.unsupported_no_scheme")
)

// DB wraps the GORM handle together with the resolved driver label.
type DB struct {
	gorm        *gorm.DB
	driverLabel string
}

// Driver exposes the selected database driver label.
func (database *DB) Driver() string {
	return database.driverLabel
}

// Open connects to the database named by a postgres:// or sqlite:// URL and
// migrates the schema.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("store.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if openErr != nil {
		return nil, fmt.Errorf("store.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(
		&UserRecord{},
		&ProfileRecord{},
		&ExperienceRecord{},
		&EducationRecord{},
		&ProjectRecord{},
		&PostRecord{},
		&ReviewRecord{},
		&MessageRecord{},
	); migrateErr != nil {
		return nil, fmt.Errorf("store.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &DB{gorm: gormDB, driverLabel: driverLabel}, nil
}

// resolveDialector splits the scheme by hand: sqlite DSNs such as
// file::memory:?cache=shared are not parseable as URL authorities.
func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	schemeSplit := strings.SplitN(databaseURL, "://", 2)
	if len(schemeSplit) != 2 {
		return nil, "", fmt.Errorf("store.dialect: %w", errUnsupportedNoScheme)
	}
	switch scheme := strings.ToLower(schemeSplit[0]); scheme {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn := schemeSplit[1]
		if strings.TrimSpace(dsn) == "" {
			return nil, "", fmt.Errorf("store.sqlite: %w", errSQLiteEmptyPath)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("store.dialect.%s: %w", scheme, ErrUnsupportedDialect)
	}
}
