package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/datadash/internal/ai"
	cfgpkg "github.com/KaramelBytes/datadash/internal/config"
	"github.com/KaramelBytes/datadash/internal/utils"
)

// normalizeProvider maps user spellings onto a registered provider name.
func normalizeProvider(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gemini", "google":
		return ai.ProviderGemini, nil
	case "openrouter":
		return ai.ProviderOpenRouter, nil
	case "ollama", "local":
		return ai.ProviderOllama, nil
	}
	return "", fmt.Errorf("invalid provider: %s (use %s)", s, strings.Join(ai.Providers(), "|"))
}

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// buildRuntime creates the text generation runtime selected by flags and
// configuration. Flags win over config; config wins over built-in defaults.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	rc := ai.RuntimeConfig{RetryMax: 1, ApplyGenerationConfig: true}
	provider := ""
	if cfg != nil {
		rc.HTTPTimeout = cfg.HTTPTimeout()
		rc.RetryMax = cfg.RetryMaxAttempts
		rc.BaseDelay = cfg.RetryBaseDelay()
		rc.MaxDelay = cfg.RetryMaxDelay()
		rc.APIKey = cfg.APIKey
		rc.ApplyGenerationConfig = cfg.ApplyGenerationConfig
		rc.Host = cfg.OllamaHost
		provider = cfg.Provider
	}
	if opts.ProviderFlag != "" {
		provider = opts.ProviderFlag
	}
	providerName, err := normalizeProvider(provider)
	if err != nil {
		return nil, "", err
	}

	switch providerName {
	case ai.ProviderOpenRouter:
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			rc.APIKey = v
		}
	case ai.ProviderOllama:
		if h := strings.TrimSpace(opts.OllamaHost); h != "" {
			rc.Host = h
		}
		if rc.Host == "" {
			rc.Host = ai.DefaultOllamaHost
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.Model != "" {
		return cfg.Model
	}
	return cfgpkg.DefaultModel
}

// explainRuntimeError adds a user-facing hint to runtime failures.
func explainRuntimeError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (config 'ollama_host' or --ollama-host): %w", unreach.Host, err)
		}
		return fmt.Errorf("%s endpoint unreachable; check network access: %w", provider, err)
	case errors.As(err, &authErr):
		if provider == ai.ProviderOpenRouter {
			return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or api_key in ~/.datadash/config.yaml: %w", err)
		}
		return fmt.Errorf("authentication failed: set GEMINI_API_KEY (or .env) or api_key in ~/.datadash/config.yaml: %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("%s is throttling requests; wait %ds and ask again: %w", provider, int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("%s is throttling requests; ask again shortly: %w", provider, err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("%s rejected the request; a smaller dataset or lower --max-tokens may help: %w", provider, err)
	case errors.As(err, &qErr):
		return fmt.Errorf("%s quota exhausted; check the account billing: %w", provider, err)
	case errors.As(err, &sErr):
		return fmt.Errorf("%s returned a server error; try again later: %w", provider, err)
	}
	return fmt.Errorf("insights request failed: %w", err)
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Dataset      string
	Model        string
	MaxTokens    int
	Temperature  float64
	PromptTokens int
	OutputPath   string
	OutputFormat string
	Writer       io.Writer
}

func (o outputOptions) record(content string) map[string]any {
	return map[string]any{
		"dataset":       o.Dataset,
		"model":         o.Model,
		"max_tokens":    o.MaxTokens,
		"temperature":   o.Temperature,
		"prompt_tokens": o.PromptTokens,
		"content":       content,
	}
}

func formatAndWriteOutput(content string, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	if opts.JSON {
		b, err := utils.PrettyJSON(opts.record(content))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	} else if opts.Quiet {
		fmt.Fprintln(w, content)
	} else {
		fmt.Fprintln(w, "\n=== AI Insights ===")
		fmt.Fprintln(w, content)
	}

	if opts.OutputPath == "" {
		return nil
	}

	var data []byte
	switch opts.OutputFormat {
	case "", "text", "markdown", "md":
		data = []byte(content)
	case "json":
		b, err := utils.PrettyJSON(opts.record(content))
		if err != nil {
			return err
		}
		data = b
	default:
		return fmt.Errorf("unsupported --format: %s (use text|markdown|json)", opts.OutputFormat)
	}
	if err := utils.SafeWriteFile(opts.OutputPath, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if !opts.Quiet {
		fmt.Fprintf(w, "✓ Saved insights to %s\n", opts.OutputPath)
	}
	return nil
}
