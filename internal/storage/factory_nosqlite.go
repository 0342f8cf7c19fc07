//go:build !sqlite

package storage

import "fmt"

// Without the sqlite tag the modernc driver is not linked in.
func newSQLiteStore(path string) (Store, error) {
	return nil, fmt.Errorf("%w: %s at %q needs a build with -tags sqlite", ErrBackendUnavailable, KindSQLite, path)
}
