package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datadash/internal/ai"
	cfgpkg "github.com/KaramelBytes/datadash/internal/config"
	"github.com/KaramelBytes/datadash/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataDash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(w, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(w, "model: %s\n", cfg.Model)
		fmt.Fprintf(w, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(w, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(w, "apply_generation_config: %t\n", cfg.ApplyGenerationConfig)
		fmt.Fprintf(w, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(w, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		if cfg.Provider == ai.ProviderOllama {
			fmt.Fprintf(w, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(w, "addr: %s\n", cfg.Addr)
		fmt.Fprintf(w, "session_secret: %s\n", mask(cfg.SessionSecret))
		fmt.Fprintf(w, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(w, "max_display_rows: %d\n", cfg.MaxDisplayRows)
		fmt.Fprintf(w, "default_plot_height: %d\n", cfg.DefaultPlotHeight)
		fmt.Fprintf(w, "chart_theme: %s\n", cfg.ChartTheme)
		fmt.Fprintf(w, "csv_delimiter: %q\n", cfg.CSVDelimiter)
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(w, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureConfig(); err != nil {
			return err
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		p, err := normalizeProvider(val)
		if err != nil {
			return err
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "max_tokens":
		return setInt(&c.MaxTokens, key, val, 1)
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "apply_generation_config":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for apply_generation_config: %w", err)
		}
		c.ApplyGenerationConfig = b
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val, 0)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val, 1)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val, 0)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val, 0)
	case "ollama_host":
		c.OllamaHost = val
	case "addr":
		c.Addr = val
	case "session_secret":
		c.SessionSecret = val
	case "max_upload_mb":
		return setInt(&c.MaxUploadMB, key, val, 1)
	case "max_display_rows":
		return setInt(&c.MaxDisplayRows, key, val, 1)
	case "default_plot_height":
		return setInt(&c.DefaultPlotHeight, key, val, 100)
	case "chart_theme":
		c.ChartTheme = val
	case "csv_delimiter":
		switch val {
		case "tab", `\t`:
			val = "\t"
		}
		if len([]rune(val)) != 1 {
			return fmt.Errorf("invalid csv_delimiter: %q (use a single character or 'tab')", val)
		}
		c.CSVDelimiter = val
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch val {
		case logging.FormatConsole, logging.FormatJSON:
			c.LogFormat = val
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string, floor int) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < floor {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
