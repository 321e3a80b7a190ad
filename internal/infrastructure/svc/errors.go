package svc

import "errors"

// ErrStorageInitFailed wraps any failure to open the configured store.
var ErrStorageInitFailed = errors.New("storage initialization failed")
