// Package aggregator fans out provider queries and merges their results.
package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/idler/internal/config"
	"github.com/yairfalse/idler/internal/emitter"
	"github.com/yairfalse/idler/internal/plugin"
	"github.com/yairfalse/idler/pkg/resource"
)

const defaultQueryTimeout = 30 * time.Second

// Options controls listing and deletion behaviour.
type Options struct {
	// Strict fails the whole listing when any query fails.
	Strict       bool
	QueryTimeout time.Duration
	// DeleteMode is config.DeleteModeNoop or config.DeleteModeProvider.
	DeleteMode string
}

// Aggregator lists idle resources through a single provider plugin.
type Aggregator struct {
	plugin  plugin.Plugin
	emitter emitter.Emitter
	tracer  trace.Tracer
	opts    Options
}

// New creates an aggregator. A nil emitter or tracer disables that concern.
func New(p plugin.Plugin, e emitter.Emitter, tracer trace.Tracer, opts Options) *Aggregator {
	if e == nil {
		e = emitter.Nop{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("aggregator")
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = defaultQueryTimeout
	}
	if opts.DeleteMode == "" {
		opts.DeleteMode = config.DeleteModeNoop
	}
	return &Aggregator{plugin: p, emitter: e, tracer: tracer, opts: opts}
}

// Region reports the region the plugin lists.
func (a *Aggregator) Region() string {
	return a.plugin.Region()
}

// List runs every query concurrently and merges the results in query order.
func (a *Aggregator) List(ctx context.Context) (resource.Inventory, error) {
	ctx, span := a.tracer.Start(ctx, "aggregator.List")
	defer span.End()

	queries := a.plugin.Queries()
	results := make([]resource.SourceResult, len(queries))

	// Each query writes only its own slot. In strict mode the first failure
	// cancels the queries still running.
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			results[i] = a.runQuery(gctx, q)
			if a.opts.Strict && !results[i].OK() {
				return fmt.Errorf("%w: list %s: %v", ErrUpstreamProvider, q.Type, results[i].Err)
			}
			return nil
		})
	}
	firstErr := g.Wait()

	for _, r := range results {
		if err := a.emitter.Emit(ctx, r); err != nil {
			log.Error().Err(err).Str("type", string(r.Type)).Msg("emit failed")
		}
	}

	inv, err := a.merge(results)
	if firstErr != nil {
		err = firstErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resource.Inventory{}, err
	}

	span.SetAttributes(
		attribute.Int("resources", len(inv.Resources)),
		attribute.Int("warnings", len(inv.Warnings)),
	)
	return inv, nil
}

func (a *Aggregator) runQuery(ctx context.Context, q plugin.Query) resource.SourceResult {
	ctx, cancel := context.WithTimeout(ctx, a.opts.QueryTimeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "aggregator.query",
		trace.WithAttributes(attribute.String("type", string(q.Type))))
	defer span.End()

	start := time.Now()
	resources, err := q.Fn(ctx)
	result := resource.SourceResult{
		Provider:  a.plugin.Name(),
		Region:    a.plugin.Region(),
		Type:      q.Type,
		Resources: resources,
		Duration:  time.Since(start),
		Err:       err,
	}

	if err != nil {
		result.Resources = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("count", len(result.Resources)))
	return result
}

func (a *Aggregator) merge(results []resource.SourceResult) (resource.Inventory, error) {
	inv := resource.Inventory{
		Resources: []resource.Resource{},
		Sources:   results,
	}

	failed := 0
	for _, r := range results {
		if r.OK() {
			inv.Resources = append(inv.Resources, r.Resources...)
			continue
		}

		failed++
		if a.opts.Strict {
			return resource.Inventory{}, fmt.Errorf("%w: list %s: %v", ErrUpstreamProvider, r.Type, r.Err)
		}
		inv.Warnings = append(inv.Warnings, resource.Warning{Type: r.Type, Error: r.Err.Error()})
	}

	if len(results) > 0 && failed == len(results) {
		return resource.Inventory{}, fmt.Errorf("%w: every query failed, first: list %s: %v",
			ErrUpstreamProvider, results[0].Type, results[0].Err)
	}

	return inv, nil
}

// Delete acknowledges or performs the deletion of one resource.
// typeHint may be empty; in provider mode the type is then inferred from the id.
func (a *Aggregator) Delete(ctx context.Context, id, typeHint string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: resource id is required", ErrClientInput)
	}

	if a.opts.DeleteMode != config.DeleteModeProvider {
		log.Info().Str("id", id).Msg("delete acknowledged")
		return fmt.Sprintf("Resource %s deleted successfully", id), nil
	}

	typ, err := resolveType(id, typeHint)
	if err != nil {
		return "", err
	}

	ctx, span := a.tracer.Start(ctx, "aggregator.Delete",
		trace.WithAttributes(attribute.String("id", id), attribute.String("type", string(typ))))
	defer span.End()

	if err := a.plugin.Delete(ctx, typ, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: delete %s %s: %v", ErrUpstreamProvider, typ, id, err)
	}

	return fmt.Sprintf("Resource %s deleted successfully", id), nil
}

// resolveType prefers an explicit hint and falls back to the id prefix.
func resolveType(id, hint string) (resource.Type, error) {
	if hint != "" {
		t, err := resource.ParseType(hint)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrClientInput, err)
		}
		return t, nil
	}

	switch {
	case strings.HasPrefix(id, "i-"):
		return resource.TypeCompute, nil
	case strings.HasPrefix(id, "vol-"):
		return resource.TypeVolume, nil
	case strings.HasPrefix(id, "snap-"):
		return resource.TypeSnapshot, nil
	default:
		return resource.TypeManagedDB, nil
	}
}
