package driven

import (
	port "github.com/alorle/iptv-player/internal/port/driven"
)

// Compile-time check that KVBoltDBCache implements KeyValueCache interface
var _ port.KeyValueCache = (*KVBoltDBCache)(nil)

// Compile-time check that UserDataHTTPAdapter implements the user-data store interfaces
var (
	_ port.ProgressStore = (*UserDataHTTPAdapter)(nil)
	_ port.LibraryStore  = (*UserDataHTTPAdapter)(nil)
)

// Compile-time check that both transports implement Transport interface
var (
	_ port.Transport = (*HLSTransport)(nil)
	_ port.Transport = (*DirectTransport)(nil)
)
