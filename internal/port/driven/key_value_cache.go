package driven

import "context"

// KeyValueCache is the device-local string store used for progress and
// offline mirrors of remote data.
// This is a driven port implemented by the BoltDB adapter.
type KeyValueCache interface {
	// Get returns the value for key. found is false if the key is absent.
	Get(key string) (value string, found bool, err error)

	Set(key, value string) error

	Delete(key string) error

	// Ping checks if the store is accessible and operational.
	Ping(ctx context.Context) error
}
