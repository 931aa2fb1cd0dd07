package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-scribe/internal/bookstack"
	"github.com/nerrad567/gray-logic-scribe/internal/classify"
	"github.com/nerrad567/gray-logic-scribe/internal/inventory"
	"github.com/nerrad567/gray-logic-scribe/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-scribe/internal/render"
)

// ErrRunInProgress is returned when Run is called while another run on
// the same Exporter has not finished.
var ErrRunInProgress = errors.New("export: run already in progress")

// RenderFunc produces the markdown body for one location's page.
type RenderFunc func(loc inventory.Location, devices []inventory.Device, entities []inventory.Entity, generatedAt time.Time) string

// RunRecorder persists finished run results. Recording failures never
// affect the run outcome.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *Result) error
}

// MetricsSink receives per-run measurements. Write failures never
// affect the run outcome.
type MetricsSink interface {
	WriteRun(ctx context.Context, result *Result) error
}

// Deps carries everything an Exporter needs. Provider, Client,
// Classifier and Logger are required; History, Metrics, Render and Now
// are optional.
type Deps struct {
	Provider   inventory.Provider
	Client     *bookstack.Client
	Classifier *classify.Classifier
	Logger     *logging.Logger

	ShelfName       string
	BookName        string
	BookDescription string

	Render  RenderFunc
	History RunRecorder
	Metrics MetricsSink
	Now     func() time.Time
}

// Exporter runs reconciliations. One Exporter serves the whole process;
// overlapping Run calls are refused rather than queued.
type Exporter struct {
	provider   inventory.Provider
	client     *bookstack.Client
	classifier *classify.Classifier
	logger     *logging.Logger

	shelfName       string
	bookName        string
	bookDescription string

	render  RenderFunc
	history RunRecorder
	metrics MetricsSink
	now     func() time.Time

	mu sync.Mutex // held for the duration of a run

	lastMu sync.Mutex
	last   *Result
}

// New validates deps and builds an Exporter.
func New(d Deps) (*Exporter, error) {
	switch {
	case d.Provider == nil:
		return nil, errors.New("export: provider is required")
	case d.Client == nil:
		return nil, errors.New("export: bookstack client is required")
	case d.Classifier == nil:
		return nil, errors.New("export: classifier is required")
	case d.Logger == nil:
		return nil, errors.New("export: logger is required")
	case d.ShelfName == "":
		return nil, errors.New("export: shelf name is required")
	case d.BookName == "":
		return nil, errors.New("export: book name is required")
	}
	if d.Render == nil {
		d.Render = render.Page
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Exporter{
		provider:        d.Provider,
		client:          d.Client,
		classifier:      d.Classifier,
		logger:          d.Logger.With("component", "export"),
		shelfName:       d.ShelfName,
		bookName:        d.BookName,
		bookDescription: d.BookDescription,
		render:          d.Render,
		history:         d.History,
		metrics:         d.Metrics,
		now:             d.Now,
	}, nil
}

// Options tunes a single run.
type Options struct {
	// BranchFilter restricts the run to branches whose name contains
	// the filter, case-insensitively. Filtered-out branches are left
	// untouched and uncounted.
	BranchFilter string
}

// Last returns the result of the most recently finished run, or nil if
// no run has finished yet.
func (e *Exporter) Last() *Result {
	e.lastMu.Lock()
	defer e.lastMu.Unlock()
	return e.last
}

// Run executes one reconciliation. It returns ErrRunInProgress if
// another run is active; otherwise it always returns a Result, with
// Status describing the outcome.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Result, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	result := &Result{
		RunID:        uuid.NewString(),
		StartedAt:    e.now(),
		BranchFilter: opts.BranchFilter,
	}
	logger := e.logger.With("run_id", result.RunID)
	logger.Info("export run started", "branch_filter", opts.BranchFilter)

	e.reconcile(ctx, logger, result, opts)

	result.finalize(e.now())
	e.lastMu.Lock()
	e.last = result
	e.lastMu.Unlock()

	logger.Info("export run finished",
		"status", string(result.Status),
		"locations", result.Locations,
		"pages_created", result.PagesCreated,
		"pages_updated", result.PagesUpdated,
		"failures", len(result.Failures),
		"cancelled", result.Cancelled,
		"duration_seconds", result.Duration,
	)

	e.record(logger, result)
	return result, nil
}

// record persists the result to history and metrics. Both are best
// effort; the run context may already be cancelled, so a short
// independent context is used.
func (e *Exporter) record(logger *logging.Logger, result *Result) {
	if e.history == nil && e.metrics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if e.history != nil {
		if err := e.history.RecordRun(ctx, result); err != nil {
			logger.Warn("failed to record run history", "error", err)
		}
	}
	if e.metrics != nil {
		if err := e.metrics.WriteRun(ctx, result); err != nil {
			logger.Warn("failed to write run metrics", "error", err)
		}
	}
}

func (e *Exporter) reconcile(ctx context.Context, logger *logging.Logger, result *Result, opts Options) {
	snapshot, err := e.provider.Snapshot(ctx)
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Sprintf("inventory snapshot: %v", err)
		logger.Error("inventory snapshot failed", "error", err)
		return
	}
	logger.Debug("inventory snapshot taken",
		"locations", len(snapshot.Locations),
		"devices", len(snapshot.Devices),
		"entities", len(snapshot.Entities),
	)

	groups := e.classifier.Group(snapshot.Locations)
	branches := filterBranches(e.classifier.Branches(), opts.BranchFilter)
	branches = nonEmptyBranches(branches, groups)

	session := e.client.NewSession()

	shelf, err := session.FindOrCreateShelf(ctx, e.shelfName, e.bookDescription)
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Sprintf("shelf %q: %v", e.shelfName, err)
		logger.Error("failed to establish shelf", "shelf", e.shelfName, "error", err)
		return
	}
	book, err := session.FindOrCreateBook(ctx, e.bookName, e.bookDescription)
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Sprintf("book %q: %v", e.bookName, err)
		logger.Error("failed to establish book", "book", e.bookName, "error", err)
		return
	}
	if err := session.AssignBookToShelf(ctx, shelf.ID, book.ID); err != nil {
		// The tree is still usable without the shelf link; record and
		// carry on.
		result.Failures = append(result.Failures, Failure{
			Level:  "shelf",
			Name:   e.shelfName,
			Reason: fmt.Sprintf("assign book: %v", err),
		})
		logger.Warn("failed to assign book to shelf", "error", err)
	}

	generatedAt := e.now()

	for bi, branch := range branches {
		if ctx.Err() != nil {
			e.recordCancelled(result, branches[bi:], groups)
			return
		}

		locations := groups[branch]
		chapter, err := session.FindOrCreateChapter(ctx, book.ID, branch, "")
		if err != nil {
			if ctx.Err() != nil {
				e.recordCancelled(result, branches[bi:], groups)
				return
			}
			result.Failures = append(result.Failures, Failure{
				Level:  "chapter",
				Name:   branch,
				Reason: err.Error(),
			})
			for _, loc := range locations {
				result.Failures = append(result.Failures, Failure{
					Level:  "page",
					Name:   render.PageTitle(loc),
					Reason: fmt.Sprintf("chapter %q unavailable", branch),
				})
			}
			logger.Warn("branch skipped", "branch", branch, "error", err)
			result.Branches++
			continue
		}
		result.Branches++
		result.Chapters++

		for li, loc := range locations {
			if ctx.Err() != nil {
				e.recordCancelledLocations(result, locations[li:])
				e.recordCancelled(result, branches[bi+1:], groups)
				return
			}

			devices := snapshot.DevicesForLocation(loc.ID)
			entities := snapshot.EntitiesForDevices(devices)
			body := e.render(loc, devices, entities, generatedAt)

			result.Locations++
			_, created, err := session.CreateOrUpdatePage(ctx, chapter.ID, render.PageTitle(loc), body)
			if err != nil {
				// A write aborted by cancellation is a cancelled item,
				// not a remote failure.
				if ctx.Err() != nil {
					e.recordCancelledLocations(result, locations[li:])
					e.recordCancelled(result, branches[bi+1:], groups)
					return
				}
				result.Failures = append(result.Failures, Failure{
					Level:  "page",
					Name:   render.PageTitle(loc),
					Reason: err.Error(),
				})
				logger.Warn("page reconciliation failed",
					"location", loc.Name, "branch", branch, "error", err)
				continue
			}
			if created {
				result.PagesCreated++
			} else {
				result.PagesUpdated++
			}
		}
	}
}

// recordCancelled marks every item in the unvisited branches as
// cancelled.
func (e *Exporter) recordCancelled(result *Result, branches []string, groups map[string][]inventory.Location) {
	result.Cancelled = true
	for _, branch := range branches {
		result.Failures = append(result.Failures, Failure{
			Level:     "chapter",
			Name:      branch,
			Reason:    "run cancelled",
			Cancelled: true,
		})
		e.recordCancelledLocations(result, groups[branch])
	}
}

func (e *Exporter) recordCancelledLocations(result *Result, locations []inventory.Location) {
	result.Cancelled = true
	for _, loc := range locations {
		result.Failures = append(result.Failures, Failure{
			Level:     "page",
			Name:      render.PageTitle(loc),
			Reason:    "run cancelled",
			Cancelled: true,
		})
	}
}

// nonEmptyBranches drops branches with no assigned locations. An empty
// branch produces no chapter.
func nonEmptyBranches(branches []string, groups map[string][]inventory.Location) []string {
	var out []string
	for _, b := range branches {
		if len(groups[b]) > 0 {
			out = append(out, b)
		}
	}
	return out
}

func filterBranches(branches []string, filter string) []string {
	if filter == "" {
		return branches
	}
	folded := strings.ToLower(filter)
	var out []string
	for _, b := range branches {
		if strings.Contains(strings.ToLower(b), folded) {
			out = append(out, b)
		}
	}
	return out
}
