package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
)

// Record is a persisted handle row.
type Record struct {
	Key   string
	Name  string
	Token string
}

// HandleStore maps a directory key to the handle the host granted for it.
// Handles are persisted as host tokens and resolved on read.
type HandleStore struct {
	db       *DB
	resolver host.Resolver
}

func NewHandleStore(db *DB, resolver host.Resolver) *HandleStore {
	return &HandleStore{db: db, resolver: resolver}
}

// Save upserts the handle under key. An existing entry is overwritten.
func (s *HandleStore) Save(ctx context.Context, key string, h host.DirectoryHandle) error {
	if err := s.db.ready("save_handle"); err != nil {
		return err
	}
	token, err := s.resolver.Marshal(h)
	if err != nil {
		return fmt.Errorf("store: marshal handle %q: %w", key, err)
	}
	_, err = s.db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO handles (key, name, token, saved_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		key, h.Name(), token)
	if err != nil {
		return unavailable("save_handle", err)
	}
	debug.Log(debug.STORE, "saved handle %q (%s)", key, h.Name())
	return nil
}

// Lookup returns the raw row for key.
func (s *HandleStore) Lookup(ctx context.Context, key string) (Record, bool, error) {
	if err := s.db.ready("get_handle"); err != nil {
		return Record{}, false, err
	}
	rec := Record{Key: key}
	err := s.db.conn.QueryRowContext(ctx, "SELECT name, token FROM handles WHERE key = ?", key).Scan(&rec.Name, &rec.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, unavailable("get_handle", err)
	}
	return rec, true, nil
}

// Get returns the handle stored under key. A missing key reports found=false
// without an error. A token the host can no longer resolve will never work
// again, so its row is deleted and found=false is reported as well.
func (s *HandleStore) Get(ctx context.Context, key string) (host.DirectoryHandle, bool, error) {
	rec, ok, err := s.Lookup(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	h, err := s.resolver.Resolve(ctx, rec.Token)
	if err != nil {
		debug.Log(debug.STORE, "token for %q no longer resolves: %v", key, err)
		if err := s.Delete(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return h, true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *HandleStore) Delete(ctx context.Context, key string) error {
	if err := s.db.ready("delete_handle"); err != nil {
		return err
	}
	if _, err := s.db.conn.ExecContext(ctx, "DELETE FROM handles WHERE key = ?", key); err != nil {
		return unavailable("delete_handle", err)
	}
	debug.Log(debug.STORE, "deleted handle %q", key)
	return nil
}

// Keys returns every stored key, oldest first.
func (s *HandleStore) Keys(ctx context.Context) ([]string, error) {
	if err := s.db.ready("list_handles"); err != nil {
		return nil, err
	}
	rows, err := s.db.conn.QueryContext(ctx, "SELECT key FROM handles ORDER BY saved_at ASC, key ASC")
	if err != nil {
		return nil, unavailable("list_handles", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err == nil {
			keys = append(keys, key)
		}
	}
	return keys, rows.Err()
}
