package dashboard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/yairfalse/idler/pkg/resource"
)

// ErrNothingToExport is returned when no resources are loaded.
var ErrNothingToExport = errors.New("no resources to export")

var exportHeader = []string{
	"id", "type", "name", "region", "state", "lastUsed", "cost",
	"instanceType", "engine", "volumeSize", "volumeType", "snapshotSize",
}

// ExportFileName is the default export name for the given day.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("idle-resources-%s.csv", now.Format("2006-01-02"))
}

// Export writes every loaded resource as CSV, ignoring the type filter.
func (d *Dashboard) Export(w io.Writer) error {
	resources, err := d.exportable()
	if err != nil {
		return err
	}
	return writeCSV(w, resources)
}

// ExportFile writes the CSV to path. The file is only created when
// there is something to export.
func (d *Dashboard) ExportFile(path string) (err error) {
	resources, err := d.exportable()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()

	return writeCSV(f, resources)
}

// exportable snapshots the loaded list; an empty list sets the error banner.
func (d *Dashboard) exportable() ([]resource.Resource, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.resources) == 0 {
		d.err = "No resources to export"
		return nil, ErrNothingToExport
	}
	return slices.Clone(d.resources), nil
}

// writeCSV quotes per RFC 4180 so names with commas or quotes survive.
func writeCSV(w io.Writer, resources []resource.Resource) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	for _, r := range resources {
		if err := cw.Write(exportRow(r)); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// exportRow flattens a resource; columns that do not apply stay empty.
func exportRow(r resource.Resource) []string {
	var instanceType, engine, volumeSize, volumeType, snapshotSize string

	switch d := r.Details.(type) {
	case resource.ComputeDetails:
		instanceType = d.InstanceType
	case resource.ManagedDBDetails:
		instanceType = d.InstanceType
		engine = d.Engine
	case resource.VolumeDetails:
		volumeSize = strconv.Itoa(int(d.VolumeSize))
		volumeType = d.VolumeType
	case resource.SnapshotDetails:
		snapshotSize = strconv.Itoa(int(d.SnapshotSize))
	}

	return []string{
		r.ID,
		string(r.Type),
		r.Name,
		r.Region,
		r.State,
		resource.FormatTime(r.LastUsed),
		strconv.FormatFloat(r.Cost, 'f', -1, 64),
		instanceType,
		engine,
		volumeSize,
		volumeType,
		snapshotSize,
	}
}
