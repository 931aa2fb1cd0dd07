package inventory

import "errors"

// ErrUnavailable indicates the inventory source could not be reached or
// could not produce a snapshot. Callers treat it as fatal for the run.
var ErrUnavailable = errors.New("inventory: source unavailable")
