package main

import (
	"fmt"
	"io"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/YusovID/bim-delivery-service/internal/service"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	return tw
}

func renderKPIs(w io.Writer, k *domain.ProjectKPIs) {
	tw := newTable(w)
	tw.SetTitle(fmt.Sprintf("Project #%d", k.ProjectID))
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	tw.AppendRows([]table.Row{
		{"Services", k.TotalServices},
		{"Reviews", k.TotalReviews},
	})
	tw.AppendSeparator()

	for _, s := range domain.ReviewStatuses {
		tw.AppendRow(table.Row{"  " + string(s), k.StatusCounts[s]})
	}
	tw.AppendSeparator()

	tw.AppendRows([]table.Row{
		{"Overdue", k.OverdueCount},
		{"Upcoming", k.UpcomingCount},
		{"Completion %", fmt.Sprintf("%.2f", k.OverallCompletionPct)},
		{"Agreed fee", k.TotalAgreedFee.StringFixed(2)},
		{"Claimed", k.TotalClaimed.StringFixed(2)},
	})

	tw.Render()
}

func renderGenerateResults(w io.Writer, results []service.GenerateResult) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Service", "Created", "Removed", "Renumbered", "Unchanged", "Protected", "Note"})

	for _, r := range results {
		note := ""
		if r.Skipped {
			note = "skipped"
		}

		tw.AppendRow(table.Row{r.ServiceID, r.Created, r.Removed, r.Renumbered, r.Unchanged, len(r.Protected), note})
	}

	tw.Render()
}

func renderReviews(w io.Writer, reviews []domain.ReviewCycle) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Review", "Service", "Cycle", "Planned", "Due", "Status"})

	for _, r := range reviews {
		tw.AppendRow(table.Row{
			r.ID,
			r.ServiceID,
			r.CycleNo,
			r.PlannedDate.Format(dateLayout),
			r.DueDate.Format(dateLayout),
			r.Status,
		})
	}

	tw.AppendFooter(table.Row{"", "", "", "", "Count", len(reviews)})
	tw.Render()
}

func renderTemplates(w io.Writer, templates []domain.Template) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Name", "Version", "Sector", "Items"})

	for _, t := range templates {
		tw.AppendRow(table.Row{t.Name, t.Version, t.Sector, len(t.Items)})
	}

	tw.Render()
}
