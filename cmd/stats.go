package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/datadash/internal/analysis"
	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/KaramelBytes/datadash/internal/parser"
	"github.com/KaramelBytes/datadash/internal/utils"
)

var (
	statsOutputPath string
	statsCorr       bool
	statsMarkdown   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Print row, column and missing-value counts plus descriptive statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parser.LoadFile(args[0])
		if err != nil {
			return err
		}
		report := statsReport(t, statsCorr, statsMarkdown)
		if statsOutputPath != "" {
			if err := utils.SafeWriteFile(statsOutputPath, []byte(report)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote stats to %s\n", statsOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVarP(&statsOutputPath, "output", "o", "", "optional path to write the report")
	statsCmd.Flags().BoolVar(&statsCorr, "correlations", false, "include the Pearson correlation matrix of numeric columns")
	statsCmd.Flags().BoolVar(&statsMarkdown, "markdown", false, "render tables as Markdown")
}

func statsReport(t *dataset.Table, corr, markdown bool) string {
	p := message.NewPrinter(language.English)
	s := dataset.ComputeStats(t)
	render := func(tw table.Writer) string {
		if markdown {
			return tw.RenderMarkdown()
		}
		return tw.Render()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dataset: %s %s\n\n", t.Name, t.Shape())

	metrics := newReportTable()
	metrics.AppendHeader(table.Row{"Rows", "Columns", "Missing Values"})
	metrics.AppendRow(table.Row{p.Sprintf("%d", s.Rows), p.Sprintf("%d", s.Columns), p.Sprintf("%d", s.Missing)})
	b.WriteString(render(metrics))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Numeric columns: %s\n", joinOrNone(dataset.NumericColumns(t)))
	fmt.Fprintf(&b, "Categorical columns: %s\n\n", joinOrNone(dataset.CategoricalColumns(t)))

	b.WriteString(analysis.Describe(t).String())
	b.WriteString("\n")

	if corr {
		b.WriteString("\nCorrelation Matrix\n")
		m := analysis.Correlation(t)
		if m.Size() == 0 {
			b.WriteString("No numeric columns available for correlation matrix\n")
			return b.String()
		}
		tw := newReportTable()
		header := table.Row{""}
		for _, c := range m.Columns {
			header = append(header, c)
		}
		tw.AppendHeader(header)
		for i, c := range m.Columns {
			row := table.Row{c}
			for _, v := range m.Values[i] {
				if math.IsNaN(v) {
					row = append(row, "NaN")
					continue
				}
				row = append(row, fmt.Sprintf("%.2f", v))
			}
			tw.AppendRow(row)
		}
		b.WriteString(render(tw))
		b.WriteString("\n")
	}
	return b.String()
}

// newReportTable returns a table writer that keeps header case as given.
func newReportTable() table.Writer {
	tw := table.NewWriter()
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
