package influxdb

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-scribe/internal/export"
)

// WriteRun records one export run as a point in the export_runs
// measurement.
//
// The write is non-blocking; data is batched and sent asynchronously.
// A disconnected client drops the point silently, metrics are best
// effort and never affect the run.
//
// Parameters:
//   - ctx: Unused, present to satisfy export.MetricsSink
//   - result: The finished run to record
//
// Returns:
//   - error: Always nil; async write errors surface via SetOnError
func (c *Client) WriteRun(_ context.Context, result *export.Result) error {
	if !c.IsConnected() {
		return nil
	}

	point := write.NewPoint(
		"export_runs",
		map[string]string{
			"status": string(result.Status),
		},
		map[string]interface{}{
			"locations":        result.Locations,
			"branches":         result.Branches,
			"chapters":         result.Chapters,
			"pages_created":    result.PagesCreated,
			"pages_updated":    result.PagesUpdated,
			"failures":         len(result.Failures),
			"cancelled":        result.Cancelled,
			"duration_seconds": result.Duration,
		},
		result.FinishedAt,
	)

	c.writeAPI.WritePoint(point)
	return nil
}
