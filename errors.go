package sessionauth

import "errors"

var (
	// ErrNoSession is an exported constant or variable used by the session middleware.
	ErrNoSession = errors.New("no authenticated session")
	// ErrUnauthorized is an exported constant or variable used by the session middleware.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrIdentityResolutionFailed is an exported constant or variable used by the session middleware.
	ErrIdentityResolutionFailed = errors.New("identity resolution failed")
	// ErrTenantRequired is an exported constant or variable used by the session middleware.
	ErrTenantRequired = errors.New("tenant context required")
	// ErrManagerNotReady is an exported constant or variable used by the session middleware.
	ErrManagerNotReady = errors.New("manager not initialized")
)
