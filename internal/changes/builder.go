package changes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/observability"
	"github.com/dshills/prchanges/internal/patch"
)

// Refs names the base of a request and its merge base with the head.
type Refs struct {
	Base      string
	MergeBase string
}

// Builder assembles changes bundles from a Source.
type Builder struct {
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(b *Builder) { b.tracer = t }
}

// NewBuilder creates a Builder reading from source.
func NewBuilder(source Source, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		logger: observability.Discard(),
		tracer: observability.Tracer(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load drains the commits of a request, resolves the merge base of baseRef and
// headRef, and builds the bundle.
func (b *Builder) Load(ctx context.Context, requestID, baseRef, headRef string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(context.Cause(ctx))
	}

	commits, err := b.source.Commits(ctx, requestID)
	if err != nil {
		return nil, b.upstreamError(ctx, "commits of "+requestID, err)
	}
	b.logger.DebugContext(ctx, "commits listed", "request", requestID, "count", len(commits))

	mergeBase, err := b.source.MergeBase(ctx, baseRef, headRef)
	if err != nil {
		return nil, b.upstreamError(ctx, fmt.Sprintf("merge base of %s and %s", baseRef, headRef), err)
	}

	return b.Build(ctx, requestID, baseRef, mergeBase, commits)
}

// Build reconstructs the commit graph of commits and orchestrates the diff
// fetches for it.
func (b *Builder) Build(ctx context.Context, requestID, baseRef, mergeBaseRef string, commits []commitgraph.Commit) (*Bundle, error) {
	head, g, err := commitgraph.Build(commits)
	if err != nil {
		b.metrics.ObserveBundle(observability.OutcomeError)
		return nil, fmt.Errorf("request %s: %w", requestID, err)
	}
	b.logger.InfoContext(ctx, "commit graph built",
		"request", requestID,
		"head", commitgraph.ShortID(head.ID),
		"commits", g.Len(),
		"input", len(commits),
	)

	return b.Orchestrate(ctx, requestID, head, g, Refs{Base: baseRef, MergeBase: mergeBaseRef})
}

// Orchestrate fetches and parses the diff of every commit in g plus the diff of
// the whole request, and assembles them in post-order from head.
//
// All fetches start immediately. Results are joined by commit identity in
// post-order, whatever order they finish in. The context is checked before any
// fetch starts and again right before assembly.
func (b *Builder) Orchestrate(ctx context.Context, requestID string, head commitgraph.Commit, g *commitgraph.Graph, refs Refs) (*Bundle, error) {
	ctx, span := b.tracer.Start(ctx, "changes.Orchestrate", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("head", head.ID),
		attribute.Int("commits", g.Len()),
	))
	defer span.End()

	start := time.Now()
	bundle, err := b.orchestrate(ctx, requestID, head, g, refs)

	outcome := Resolve(bundle, err)
	switch outcome.Kind {
	case OutcomeOK:
		b.metrics.ObserveBundle(observability.OutcomeOK)
		b.logger.InfoContext(ctx, "changes bundle assembled",
			"request", requestID,
			"commits", bundle.Len(),
			"request_files", len(bundle.request),
			"elapsed", time.Since(start),
		)
	case OutcomeCancelled:
		b.metrics.ObserveBundle(observability.OutcomeCancelled)
		span.SetAttributes(attribute.Bool("cancelled", true))
		b.logger.DebugContext(ctx, "changes bundle cancelled", "request", requestID)
	default:
		b.metrics.ObserveBundle(observability.OutcomeError)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return bundle, err
}

type fetchResult struct {
	text string
	err  error
}

func (b *Builder) orchestrate(ctx context.Context, requestID string, head commitgraph.Commit, g *commitgraph.Graph, refs Refs) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(context.Cause(ctx))
	}

	order := g.PostOrderFrom(head.ID)
	if order == nil {
		return nil, fmt.Errorf("%w: head %s is not part of the graph", ErrMalformedHistory, head.ID)
	}

	groupCtx, abort := context.WithCancelCause(ctx)
	defer abort(nil)
	grp, fetchCtx := errgroup.WithContext(groupCtx)

	slots := make(map[string]chan fetchResult, len(order))
	for _, c := range order {
		slot := make(chan fetchResult, 1)
		slots[c.ID] = slot
		id := c.ID
		grp.Go(func() error {
			return b.fetch(fetchCtx, observability.FetchCommit, "commit "+id, slot, func(ctx context.Context) (string, error) {
				return b.source.CommitDiff(ctx, id)
			})
		})
	}
	requestSlot := make(chan fetchResult, 1)
	grp.Go(func() error {
		return b.fetch(fetchCtx, observability.FetchRequest, "request "+requestID, requestSlot, func(ctx context.Context) (string, error) {
			return b.source.RequestDiff(ctx, requestID)
		})
	})
	b.logger.DebugContext(ctx, "diff fetches started", "request", requestID, "fetches", len(order)+1)

	sets := make([]CommitPatchSet, 0, len(order))
	for _, c := range order {
		patches, err := b.join(ctx, fetchCtx, slots[c.ID], "commit "+c.ID)
		if err != nil {
			err = b.joinError(ctx, fetchCtx, err)
			abort(err)
			return nil, err
		}
		sets = append(sets, CommitPatchSet{
			Commit:  c,
			Parents: g.Parents(c.ID),
			Patches: patches,
		})
	}

	requestPatches, err := b.join(ctx, fetchCtx, requestSlot, "request "+requestID)
	if err != nil {
		err = b.joinError(ctx, fetchCtx, err)
		abort(err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, cancelled(context.Cause(ctx))
	}
	// Every slot has been filled, so this only reaps the goroutines.
	_ = grp.Wait()

	return Assemble(refs.Base, refs.MergeBase, sets, requestPatches), nil
}

// fetch runs one diff fetch and fills its slot. Failures other than
// cancellation are tagged as transport failures.
func (b *Builder) fetch(ctx context.Context, kind, target string, slot chan<- fetchResult, do func(context.Context) (string, error)) error {
	ctx, span := b.tracer.Start(ctx, "changes.fetch", trace.WithAttributes(
		attribute.String("fetch.kind", kind),
		attribute.String("fetch.target", target),
	))
	defer span.End()

	start := time.Now()
	text, err := do(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		b.metrics.ObserveFetch(kind, observability.OutcomeOK, elapsed)
		b.logger.DebugContext(ctx, "diff fetched", "target", target, "bytes", len(text), "elapsed", elapsed)
	case isCancellation(err):
		b.metrics.ObserveFetch(kind, observability.OutcomeCancelled, elapsed)
	default:
		err = transportError(target, err)
		b.metrics.ObserveFetch(kind, observability.OutcomeError, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	slot <- fetchResult{text: text, err: err}
	return err
}

// join waits for one slot and parses its diff. It gives up as soon as the
// caller is cancelled or any fetch of the group has failed, leaving the other
// fetches to notice the cancelled fetch context on their own.
func (b *Builder) join(ctx, fetchCtx context.Context, slot <-chan fetchResult, target string) ([]patch.FilePatch, error) {
	select {
	case r := <-slot:
		if r.err != nil {
			return nil, r.err
		}
		patches, err := patch.Parse(r.text)
		if err != nil {
			return nil, &FetchError{Kind: ErrUnparseableDiff, Target: target, Err: err}
		}
		b.metrics.AddPatches(len(patches))
		return patches, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fetchCtx.Done():
		return nil, context.Cause(fetchCtx)
	}
}

// joinError decides what a failed join reports. A cancelled caller context
// always wins. A fetch that merely saw the group being torn down after a
// sibling failed reports that sibling's failure instead.
func (b *Builder) joinError(ctx, fetchCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return cancelled(context.Cause(ctx))
	}
	if isCancellation(err) {
		if cause := context.Cause(fetchCtx); cause != nil && !isCancellation(cause) {
			return cause
		}
		return cancelled(err)
	}
	return err
}

func (b *Builder) upstreamError(ctx context.Context, target string, err error) error {
	if ctx.Err() != nil {
		return cancelled(context.Cause(ctx))
	}
	if isCancellation(err) {
		return cancelled(err)
	}
	return transportError(target, err)
}
