package influxdb

import "errors"

// Sentinel errors, checkable with errors.Is().
var (
	// ErrDisabled indicates the influxdb section of config.yaml is
	// switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected indicates the client has been closed.
	ErrNotConnected = errors.New("influxdb: not connected")
)
