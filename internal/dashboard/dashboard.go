// Package dashboard holds the client-side view of the idle inventory.
package dashboard

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/idler/internal/client"
	"github.com/yairfalse/idler/internal/filter"
	"github.com/yairfalse/idler/pkg/resource"
)

var (
	ErrEmptyID      = errors.New("resource id is required")
	ErrNotConfirmed = errors.New("deletion not confirmed")
)

// API is the aggregator as seen by the dashboard.
type API interface {
	List(ctx context.Context) (client.ListResult, error)
	Delete(ctx context.Context, id string, typ resource.Type) (string, error)
}

// Tile is one entry of the per-type summary.
type Tile struct {
	Type      resource.Type
	Count     int
	TotalCost float64
}

// Dashboard keeps the last loaded list and the current type selection.
type Dashboard struct {
	api API

	mu        sync.Mutex
	resources []resource.Resource
	warnings  []resource.Warning
	loading   bool
	err       string
	selected  filter.Selection
}

// New creates an empty dashboard showing every type.
func New(api API) *Dashboard {
	return &Dashboard{api: api, selected: filter.All}
}

// Load replaces the list with a fresh one from the aggregator.
// On failure the list is cleared and Err reports what happened.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	res, err := d.api.List(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false

	if err != nil {
		d.resources = nil
		d.warnings = nil
		d.err = loadErrorText(err)
		return err
	}

	d.resources = res.Resources
	d.warnings = res.Warnings
	d.err = ""
	log.Debug().Int("resources", len(res.Resources)).Int("warnings", len(res.Warnings)).Msg("inventory loaded")
	return nil
}

func loadErrorText(err error) string {
	var se *client.ServerError
	if errors.As(err, &se) && se.Message != "" {
		return "Failed to load resources: " + se.Message
	}
	return "Failed to load resources. Please try again."
}

// Resources returns a copy of the loaded list.
func (d *Dashboard) Resources() []resource.Resource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.resources)
}

// Warnings returns the sources the server could not list.
func (d *Dashboard) Warnings() []resource.Warning {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.warnings)
}

// Loading reports whether a Load is in flight.
func (d *Dashboard) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Err returns the banner message of the last failed operation, or "".
func (d *Dashboard) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Select sets the type filter.
func (d *Dashboard) Select(sel filter.Selection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = sel
}

// Selected returns the type filter.
func (d *Dashboard) Selected() filter.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Filter returns the loaded resources that match the selection.
func (d *Dashboard) Filter() []resource.Resource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(filter.ByType(d.resources, d.selected))
}

// Summarize counts the unfiltered list per type, in canonical type order.
func (d *Dashboard) Summarize() []Tile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Summarize(d.resources)
}

// Summarize builds one tile per type.
func Summarize(resources []resource.Resource) []Tile {
	types := resource.Types()
	tiles := make([]Tile, len(types))
	index := make(map[resource.Type]int, len(types))
	for i, t := range types {
		tiles[i] = Tile{Type: t}
		index[t] = i
	}

	for _, r := range resources {
		i, ok := index[r.Type]
		if !ok {
			continue
		}
		tiles[i].Count++
		tiles[i].TotalCost += r.Cost
	}
	return tiles
}

// ConfirmFunc decides whether id may be deleted.
type ConfirmFunc func(id string) bool

// SkipConfirm approves every deletion. Pass it explicitly to bypass the prompt.
func SkipConfirm(string) bool { return true }

// DeleteRow asks confirm, then deletes id through the aggregator and
// drops it from the list. Nothing is removed unless the server agrees.
// A nil confirm refuses the deletion.
func (d *Dashboard) DeleteRow(ctx context.Context, id string, confirm ConfirmFunc) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	if confirm == nil || !confirm(id) {
		return ErrNotConfirmed
	}

	typ := d.typeOf(id)
	if _, err := d.api.Delete(ctx, id, typ); err != nil {
		d.mu.Lock()
		d.err = "Failed to delete resource. Please try again."
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.resources = slices.DeleteFunc(slices.Clone(d.resources), func(r resource.Resource) bool {
		return r.ID == id
	})
	d.err = ""
	log.Info().Str("id", id).Str("type", string(typ)).Msg("resource deleted")
	return nil
}

// typeOf finds the type of a loaded resource, or "" when unknown.
func (d *Dashboard) typeOf(id string) resource.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.resources {
		if r.ID == id {
			return r.Type
		}
	}
	return ""
}
