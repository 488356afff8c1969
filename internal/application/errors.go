package application

import "errors"

// Application errors
var (
	ErrCatalogNotLoaded = errors.New("catalog not loaded")
	ErrNoActiveSession  = errors.New("no active playback session")
)
