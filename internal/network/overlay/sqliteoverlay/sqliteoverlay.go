// Package sqliteoverlay implements a single-node data.Overlay backed by
// gorm + glebarez/sqlite, grounded on the teacher's tracker/db.NewDB
// (gorm.Open with PrepareStmt, PRAGMA foreign_keys, AutoMigrate). It is
// the durable counterpart of memoverlay: one peer's on-disk view of the
// keys it has put, suitable as the local half of an overlay federation
// or as a standalone store for single-peer testing.
package sqliteoverlay

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/hive2hive/h2h/internal/model"
	"github.com/hive2hive/h2h/internal/network/data"
)

// record is the gorm-mapped row for one (locationKey, contentKey) slot.
type record struct {
	ID            uint `gorm:"primaryKey"`
	LocationKey   string `gorm:"uniqueIndex:idx_location_content"`
	ContentKey    string `gorm:"uniqueIndex:idx_location_content"`
	VersionKey    string
	Payload       []byte
}

// Overlay is a gorm-backed data.Overlay. A mutex serializes access
// alongside gorm's own connection pooling, matching memoverlay's
// single-writer-at-a-time contract so StaleVersionError semantics stay
// identical across both implementations.
type Overlay struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open opens (creating if necessary) a sqlite database at path and
// migrates the record schema.
func Open(path string) (*Overlay, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, fmt.Errorf("open sqlite overlay: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate overlay schema: %w", err)
	}
	return &Overlay{db: db}, nil
}

func key(locationKey, contentKey string) (string, string) { return locationKey, contentKey }

func (o *Overlay) Get(ctx context.Context, params data.Parameters) (data.NetworkContent, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	loc, cont := key(params.LocationKey, params.ContentKey)
	var row record
	err := o.db.WithContext(ctx).First(&row, "location_key = ? AND content_key = ?", loc, cont).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return data.NetworkContent{}, false, nil
		}
		return data.NetworkContent{}, false, err
	}

	var content data.NetworkContent
	if err := gob.NewDecoder(bytes.NewReader(row.Payload)).Decode(&content); err != nil {
		return data.NetworkContent{}, false, fmt.Errorf("decode stored content: %w", err)
	}
	return content, true, nil
}

func (o *Overlay) Put(ctx context.Context, params data.Parameters) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	loc, cont := key(params.LocationKey, params.ContentKey)
	var existing record
	err := o.db.WithContext(ctx).First(&existing, "location_key = ? AND content_key = ?", loc, cont).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		// first put at this slot: fall through to insert below.
	case err != nil:
		return err
	default:
		if params.BasedOnKey != "" && model.VersionKey(existing.VersionKey) != params.BasedOnKey {
			return &StaleVersionError{Want: params.BasedOnKey, Got: model.VersionKey(existing.VersionKey)}
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(params.Data); err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	row := record{LocationKey: loc, ContentKey: cont, VersionKey: string(params.VersionKey), Payload: buf.Bytes()}
	if err == gorm.ErrRecordNotFound {
		return o.db.WithContext(ctx).Create(&row).Error
	}
	row.ID = existing.ID
	return o.db.WithContext(ctx).Save(&row).Error
}

// PutUnblocked runs Put on a background goroutine and returns a future
// that joins it, matching memoverlay's non-blocking contract.
func (o *Overlay) PutUnblocked(ctx context.Context, params data.Parameters) (data.PutFuture, error) {
	done := make(chan error, 1)
	go func() { done <- o.Put(ctx, params) }()
	return &sqliteFuture{done: done}, nil
}

func (o *Overlay) Remove(ctx context.Context, params data.Parameters) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	loc, cont := key(params.LocationKey, params.ContentKey)
	return o.db.WithContext(ctx).Where("location_key = ? AND content_key = ?", loc, cont).Delete(&record{}).Error
}

func (o *Overlay) Close() error {
	sqlDB, err := o.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StaleVersionError mirrors memoverlay.StaleVersionError: a put whose
// BasedOnKey does not match the currently stored VersionKey.
type StaleVersionError struct {
	Want, Got model.VersionKey
}

func (e *StaleVersionError) Error() string {
	return fmt.Sprintf("stale version: want based-on %q, stored version is %q", e.Want, e.Got)
}

type sqliteFuture struct {
	done chan error
	err  error
	once sync.Once
}

func (f *sqliteFuture) Await(ctx context.Context) error {
	f.once.Do(func() {
		select {
		case f.err = <-f.done:
		case <-ctx.Done():
			f.err = ctx.Err()
		}
	})
	return f.err
}

func (f *sqliteFuture) Cancel() {}
