// Package render produces the markdown page bodies published to the
// documentation tree. Rendering is pure; the exporter supplies the
// inventory slice and the timestamp, and the renderer never talks to
// the network or the clock.
package render
