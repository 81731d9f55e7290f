package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datadash/internal/chart"
	"github.com/KaramelBytes/datadash/internal/parser"
	"github.com/KaramelBytes/datadash/internal/utils"
)

var (
	chKind       string
	chX          string
	chY          string
	chColor      string
	chGroup      string
	chColumn     string
	chBins       int
	chOutputPath string
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Render one chart of a CSV/XLSX dataset to a standalone HTML file",
	Example: `  datadash chart sales.csv --kind "Histogram" --column price --bins 20
  datadash chart sales.csv --kind "Bar Chart" --x region --y revenue -o revenue.html
  datadash chart sales.xlsx --kind "Correlation Matrix"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parser.LoadFile(args[0])
		if err != nil {
			return err
		}
		kind, err := chart.ParseKind(chKind)
		if err != nil {
			return fmt.Errorf("%w (use one of: %s)", err, kindList())
		}
		opts := chart.Options{}
		if cfg != nil {
			opts.Height = cfg.DefaultPlotHeight
			opts.Theme = cfg.ChartTheme
		}
		res, err := chart.Build(t, chart.Spec{
			Kind:   kind,
			X:      chX,
			Y:      chY,
			Color:  chColor,
			Group:  chGroup,
			Column: chColumn,
			Bins:   chBins,
		}, opts)
		if err != nil {
			return err
		}
		if res.Warning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ "+res.Warning)
			return nil
		}
		html, err := res.HTML()
		if err != nil {
			return err
		}
		out := chOutputPath
		if out == "" {
			base := filepath.Base(args[0])
			out = strings.TrimSuffix(base, filepath.Ext(base)) + ".chart.html"
		}
		if err := utils.SafeWriteFile(out, html); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", res.Title, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	f := chartCmd.Flags()
	f.StringVar(&chKind, "kind", string(chart.Scatter), "chart type: "+kindList())
	f.StringVar(&chX, "x", "", "X axis column (default: first eligible column)")
	f.StringVar(&chY, "y", "", "Y axis or value column (default: first numeric column)")
	f.StringVar(&chColor, "color", "", "scatter: categorical column to color by")
	f.StringVar(&chGroup, "group", "", "box plot: categorical column to group by")
	f.StringVar(&chColumn, "column", "", "histogram: numeric column")
	f.IntVar(&chBins, "bins", chart.DefaultBins, fmt.Sprintf("histogram: number of bins (%d-%d)", chart.MinBins, chart.MaxBins))
	f.StringVarP(&chOutputPath, "output", "o", "", "output HTML path (default <file>.chart.html)")
}

func kindList() string {
	names := make([]string, len(chart.Kinds))
	for i, k := range chart.Kinds {
		names[i] = fmt.Sprintf("%q", string(k))
	}
	return strings.Join(names, ", ")
}
