package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datadash/internal/ai"
	"github.com/KaramelBytes/datadash/internal/insights"
	"github.com/KaramelBytes/datadash/internal/ui"
)

var (
	serveAddr       string
	serveProvider   string
	serveOllamaHost string
	serveSecure     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Example: `  datadash serve
  datadash serve --addr 0.0.0.0:8501 --log-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Addr = serveAddr
		}
		log, err := newLogger()
		if err != nil {
			return err
		}

		rt, providerName, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: serveProvider, OllamaHost: serveOllamaHost})
		if err != nil {
			return err
		}
		model := selectModel(cfg, "")
		if cfg.APIKey == "" && providerName == ai.ProviderGemini {
			log.Warn().Str("provider", providerName).Msg("GEMINI_API_KEY is missing; insights requests will fail until it is set")
		}

		srv, err := ui.NewServer(ui.Config{
			Addr:           cfg.Addr,
			SessionSecret:  cfg.SessionSecret,
			SecureCookie:   serveSecure,
			MaxUploadBytes: cfg.MaxUploadBytes(),
			MaxDisplayRows: cfg.MaxDisplayRows,
			PlotHeight:     cfg.DefaultPlotHeight,
			Theme:          cfg.ChartTheme,
			Insights:       insights.NewService(rt, model, cfg.MaxTokens, cfg.Temperature, &log),
			Logger:         &log,
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard on http://%s (provider=%s model=%s)\n", cfg.Addr, providerName, model)
		return srv.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8501)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "insights provider: gemini|openrouter|ollama (default from config)")
	serveCmd.Flags().StringVar(&serveOllamaHost, "ollama-host", "", "override Ollama host")
	serveCmd.Flags().BoolVar(&serveSecure, "secure-cookie", false, "mark the session cookie Secure (only when served behind HTTPS)")
}
