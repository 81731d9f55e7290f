package cmd

import (
	"context"
	"crypto/sha1"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/datadash/internal/insights"
	"github.com/KaramelBytes/datadash/internal/parser"
	"github.com/KaramelBytes/datadash/internal/utils"
)

var (
	insModel      string
	insProvider   string
	insMaxTokens  int
	insTemp       float64
	insDryRun     bool
	insQuiet      bool
	insJSON       bool
	insOutputPath string
	insOutputFmt  string
	insOllamaHost string
	insTimeoutSec int
)

var insightsCmd = &cobra.Command{
	Use:   "insights <file>",
	Short: "Ask the configured model for insights about a CSV/XLSX dataset",
	Example: `  datadash insights sales.csv --dry-run
  datadash insights sales.xlsx --max-tokens 512 --output insights.md
  datadash insights sales.csv --provider ollama --model llama3.1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flags persist between invocations in tests; reset unless set in this parse.
		provided := map[string]bool{}
		cmd.Flags().Visit(func(fl *pflag.Flag) { provided[fl.Name] = true })
		for name, v := range map[string]*bool{"dry-run": &insDryRun, "quiet": &insQuiet, "json": &insJSON} {
			if !provided[name] {
				*v = false
			}
		}
		if insJSON {
			insQuiet = true
		}
		if !provided["model"] {
			insModel = ""
		}
		if !provided["provider"] {
			insProvider = ""
		}
		if !provided["output"] {
			insOutputPath = ""
		}
		if !provided["max-tokens"] {
			insMaxTokens = 0
		}

		t, err := parser.LoadFile(args[0])
		if err != nil {
			return err
		}
		prompt := insights.BuildPrompt(t)
		tokens := utils.CountTokens(prompt)
		model := selectModel(cfg, insModel)

		maxTokens := insMaxTokens
		if maxTokens == 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		temp := insTemp
		if !provided["temp"] && cfg != nil {
			temp = cfg.Temperature
		}

		if !insQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset: %s %s, prompt tokens≈%d\n", t.Name, t.Shape(), tokens)
		}
		if insDryRun {
			if !insQuiet {
				// Deterministic dry-run request id for observability
				sum := sha1.Sum([]byte(prompt))
				fmt.Fprintln(cmd.OutOrStdout(), "\n--dry-run: no API call will be made. Prompt preview below --")
				fmt.Fprintf(cmd.OutOrStdout(), "Request ID (dry-run): sim_%x\n", sum[:6])
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		}

		rt, providerName, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: insProvider, OllamaHost: insOllamaHost})
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		svc := insights.NewService(rt, model, maxTokens, temp, &log)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if insTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(insTimeoutSec)*time.Second)
			defer cancel()
		}

		if !insQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "⚙ Analyzing data with %s model=%s ...\n", providerName, model)
		}
		text, err := svc.Generate(ctx, t)
		if err != nil {
			return explainRuntimeError(err, providerName, model)
		}
		return formatAndWriteOutput(text, outputOptions{
			JSON:         insJSON,
			Quiet:        insQuiet,
			Dataset:      t.Name,
			Model:        model,
			MaxTokens:    maxTokens,
			Temperature:  temp,
			PromptTokens: tokens,
			OutputPath:   insOutputPath,
			OutputFormat: insOutputFmt,
			Writer:       cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	f := insightsCmd.Flags()
	f.StringVar(&insModel, "model", "", "override model (default from config)")
	f.StringVar(&insProvider, "provider", "", "runtime provider: gemini|openrouter|ollama (default from config)")
	f.IntVar(&insMaxTokens, "max-tokens", 0, "max tokens for the response (default from config)")
	f.Float64Var(&insTemp, "temp", 0, "sampling temperature (default from config)")
	f.BoolVar(&insDryRun, "dry-run", false, "build the prompt and print it without calling the API")
	f.BoolVar(&insQuiet, "quiet", false, "suppress non-essential output")
	f.BoolVar(&insJSON, "json", false, "emit the response as JSON to stdout")
	f.StringVar(&insOutputPath, "output", "", "optional path to write the response")
	f.StringVar(&insOutputFmt, "format", "text", "output format: text|markdown|json")
	f.StringVar(&insOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	f.IntVar(&insTimeoutSec, "timeout-sec", 0, "request timeout in seconds (0 = none)")
}
