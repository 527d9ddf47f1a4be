// Package lock keeps a second process from opening a store that is
// already open. The lock is advisory and lives in a file next to the store.
package lock

import "errors"

var ErrLocked = errors.New("store already in use by another slotkv instance")
