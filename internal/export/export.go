// Package export renders billing claims as flat tables for invoicing tools.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// ParseFormat accepts "csv" and "table" (case-insensitive); empty input means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatTable:
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatTable {
		return "text/plain; charset=utf-8"
	}

	return "text/csv; charset=utf-8"
}

// Extension is used for download file names.
func (f Format) Extension() string {
	if f == FormatTable {
		return "txt"
	}

	return "csv"
}

var header = table.Row{"Stage", "Previous %", "Current %", "Delta %", "Amount"}

// WriteClaim writes one row per claim line followed by a total row.
func WriteClaim(w io.Writer, claim *domain.BillingClaim, format Format) error {
	tw := table.NewWriter()
	tw.AppendHeader(header)

	for _, l := range claim.Lines {
		tw.AppendRow(table.Row{
			l.StageLabel,
			pct(l.PrevPct),
			pct(l.CurrPct),
			pct(l.DeltaPct),
			l.Amount.StringFixed(2),
		})
	}

	tw.AppendFooter(table.Row{"Total", "", "", "", claim.Total().StringFixed(2)})

	var out string

	switch format {
	case FormatCSV:
		out = tw.RenderCSV()
	case FormatTable:
		tw.SetTitle(fmt.Sprintf("Claim #%d  %s to %s  (%s)",
			claim.ID,
			claim.PeriodStart.Format(dateLayout),
			claim.PeriodEnd.Format(dateLayout),
			claim.Status,
		))
		tw.SetStyle(table.StyleLight)
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
			{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
			{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
			{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
		})
		out = tw.Render()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}

	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("failed to write claim %d: %w", claim.ID, err)
	}

	return nil
}

const dateLayout = "2006-01-02"

func pct(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
