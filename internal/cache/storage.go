// Handles caching of raw resource bodies
package cache

// Storage is a byte-oriented key/value store.
// I/O failures are not surfaced: a failed read is reported as absence and a
// failed write or delete is logged and dropped.
type Storage interface {
	// retrieves the bytes stored under key, false when absent or unreadable
	Get(key string) ([]byte, bool)
	// reports whether an entry exists for key
	Exists(key string) bool
	// creates or overwrites the entry for key, nil deletes it
	Set(key string, value []byte)
	// removes the entry for key, a missing entry is not an error
	Delete(key string)
	// removes every entry, best-effort
	Clear()
}
