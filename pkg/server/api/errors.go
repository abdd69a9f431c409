package api

import "errors"

// ErrNoRefresher indicates the server was started without a snapshot source.
var ErrNoRefresher = errors.New("no refresher configured")
