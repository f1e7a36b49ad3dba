package dashboard

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yairfalse/idler/pkg/resource"
)

var tileStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#F4D060")).
	Padding(0, 2)

var tileTitle = lipgloss.NewStyle().Bold(true)

// DrawBanner prints the program banner.
func DrawBanner(w io.Writer) {
	fig := figure.NewFigure("idler", "", true)
	fmt.Fprintln(w, text.FgHiBlue.Sprint(fig.String()))
}

// StartSpinner shows a spinner on w until Stop is called.
func StartSpinner(w io.Writer, msg string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + msg
	s.Start()
	return s
}

// RenderTiles draws one box per type side by side.
func RenderTiles(tiles []Tile) string {
	boxes := make([]string, 0, len(tiles))
	for _, t := range tiles {
		body := fmt.Sprintf("%s\n%d idle\n$%.2f", tileTitle.Render(string(t.Type)), t.Count, t.TotalCost)
		boxes = append(boxes, tileStyle.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// RenderTable draws the resources as a table.
func RenderTable(resources []resource.Resource) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Type", "Name", "Region", "State", "Last Used", "Cost", "Details"})
	for _, r := range resources {
		tw.AppendRow(table.Row{
			r.ID,
			string(r.Type),
			r.Name,
			r.Region,
			r.State,
			lastUsedText(r.LastUsed),
			fmt.Sprintf("$%.2f", r.Cost),
			detailsText(r.Details),
		})
	}
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
	})
	return tw.Render()
}

// Render writes the full dashboard: error banner, warnings, tiles and the filtered table.
func (d *Dashboard) Render(w io.Writer) {
	if msg := d.Err(); msg != "" {
		fmt.Fprintln(w, text.FgRed.Sprint(msg))
	}
	for _, warn := range d.Warnings() {
		fmt.Fprintln(w, text.FgYellow.Sprintf("warning: %s could not be listed: %s", warn.Type, warn.Error))
	}

	fmt.Fprintln(w, RenderTiles(d.Summarize()))

	rows := d.Filter()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No idle resources found.")
		return
	}
	fmt.Fprintln(w, RenderTable(rows))
}

func lastUsedText(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func detailsText(d resource.Details) string {
	switch v := d.(type) {
	case resource.ComputeDetails:
		return v.InstanceType
	case resource.ManagedDBDetails:
		return strings.TrimSpace(v.InstanceType + " " + v.Engine)
	case resource.VolumeDetails:
		return fmt.Sprintf("%d GB %s", v.VolumeSize, v.VolumeType)
	case resource.SnapshotDetails:
		return fmt.Sprintf("%d GB", v.SnapshotSize)
	default:
		return ""
	}
}
