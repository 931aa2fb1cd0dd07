// Package inventory defines the source-side data model for exports.
//
// The exporter never talks to a concrete inventory backend directly; it
// consumes a Snapshot produced by a Provider. Two providers ship with
// the service: graylogic reads the core controller's SQLite database,
// and mqttdisc folds Home Assistant MQTT discovery announcements into a
// snapshot. Both normalise into the same Location, Device and Entity
// shapes so the export pipeline is backend-agnostic.
package inventory
