package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// Querier is the subset of [sql.DB] and [sql.Tx] the repositories need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store groups the repositories bound to one [Querier].
type Store struct {
	Users       *UserRepository
	Videos      *VideoRepository
	Playlists   *PlaylistRepository
	Items       *PlaylistItemRepository
	LocalVideos *LocalVideoRepository
	Jobs        *JobRepository
	Options     *OptionRepository
}

// NewStore binds every repository to q.
func NewStore(q Querier) *Store {
	return &Store{
		Users:       NewUserRepository(q),
		Videos:      NewVideoRepository(q),
		Playlists:   NewPlaylistRepository(q),
		Items:       NewPlaylistItemRepository(q),
		LocalVideos: NewLocalVideoRepository(q),
		Jobs:        NewJobRepository(q),
		Options:     NewOptionRepository(q),
	}
}

// Catalog is the persistent store of remote metadata, local media and configuration.
type Catalog struct {
	db            *sql.DB
	store         *Store
	playlistLocks shared.KeyedMutex
}

// NewCatalog wraps an already migrated database.
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db, store: NewStore(db)}
}

// OpenCatalog opens the SQLite file at path, refuses catalogs written by a newer schema,
// applies pending migrations and records the schema version in the db_version option.
func OpenCatalog(ctx context.Context, path string) (*Catalog, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	c := NewCatalog(db)
	if err := c.recordVersion(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) recordVersion(ctx context.Context) error {
	version, err := shared.SchemaVersion(c.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	return c.store.Options.put(ctx, models.OptDBVersion, strconv.Itoa(version))
}

// DB exposes the underlying handle.
func (c *Catalog) DB() *sql.DB { return c.db }

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Store returns repositories running in autocommit mode.
func (c *Catalog) Store() *Store { return c.store }

// InTx runs fn inside one transaction. The transaction commits when fn returns nil and rolls back otherwise.
//
// The pool holds a single connection, so fn must only use the [Store] it is given.
func (c *Catalog) InTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockPlaylist serializes item writes for one playlist and returns the unlock func.
func (c *Catalog) LockPlaylist(playlistID string) func() {
	return c.playlistLocks.Lock(playlistID)
}

func checkAffected(res sql.Result, notFound error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
