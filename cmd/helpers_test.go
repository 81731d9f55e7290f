package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/datadash/internal/ai"
	cfgpkg "github.com/KaramelBytes/datadash/internal/config"
)

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{Model: "cfg-model"}

	if got := selectModel(cfg, "cli-model"); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(cfg, ""); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	cfg.Model = ""
	if got := selectModel(cfg, ""); got != cfgpkg.DefaultModel {
		t.Fatalf("expected fallback model, got %q", got)
	}
}

func TestNormalizeProvider(t *testing.T) {
	cases := map[string]string{
		"":           ai.ProviderGemini,
		"Google":     ai.ProviderGemini,
		"OPENROUTER": ai.ProviderOpenRouter,
		"local":      ai.ProviderOllama,
	}
	for in, want := range cases {
		got, err := normalizeProvider(in)
		if err != nil || got != want {
			t.Fatalf("normalizeProvider(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := normalizeProvider("anthropic"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestBuildRuntimeDefaults(t *testing.T) {
	cfg := &cfgpkg.Global{Provider: "local", OllamaHost: "http://example"}
	client, provider, err := buildRuntime(cfg, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	if provider != ai.ProviderOllama {
		t.Fatalf("expected ollama provider, got %q", provider)
	}
	if client == nil {
		t.Fatal("expected runtime client")
	}

	client, provider, err = buildRuntime(nil, runtimeOptions{})
	if err != nil || provider != ai.ProviderGemini {
		t.Fatalf("expected gemini by default, got %q, %v", provider, err)
	}
	if _, ok := client.(*ai.GeminiClient); !ok {
		t.Fatalf("expected *ai.GeminiClient, got %T", client)
	}
}

func TestBuildRuntimeProviderFlagWins(t *testing.T) {
	cfg := &cfgpkg.Global{Provider: "gemini"}
	_, provider, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: "openrouter"})
	if err != nil {
		t.Fatalf("buildRuntime error: %v", err)
	}
	if provider != ai.ProviderOpenRouter {
		t.Fatalf("expected openrouter, got %q", provider)
	}
}

func TestExplainRuntimeError(t *testing.T) {
	auth := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401, Message: "denied"}}
	err := explainRuntimeError(auth, ai.ProviderGemini, "m")
	if !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Fatalf("expected key hint, got %v", err)
	}
	var target *ai.AuthError
	if !errors.As(err, &target) {
		t.Fatal("expected wrapped AuthError")
	}

	unreach := &ai.UnreachableError{Host: "http://127.0.0.1:1", Err: errors.New("refused")}
	err = explainRuntimeError(unreach, ai.ProviderOllama, "llama3")
	if !strings.Contains(err.Error(), "Ollama not reachable at http://127.0.0.1:1") {
		t.Fatalf("unexpected message: %v", err)
	}

	err = explainRuntimeError(errors.New("boom"), ai.ProviderGemini, "m")
	if !strings.HasPrefix(err.Error(), "insights request failed: boom") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestFormatAndWriteOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	buf := &bytes.Buffer{}
	if err := formatAndWriteOutput("content", outputOptions{
		Dataset:      "sales.csv",
		Model:        "model",
		MaxTokens:    10,
		Temperature:  0.5,
		PromptTokens: 4,
		OutputPath:   path,
		OutputFormat: "text",
		Writer:       buf,
	}); err != nil {
		t.Fatalf("formatAndWriteOutput error: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "=== AI Insights ===") {
		t.Fatalf("expected formatted output, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("unexpected file content: %q", string(data))
	}
}

func TestFormatAndWriteOutputJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := formatAndWriteOutput("content", outputOptions{
		JSON:         true,
		Quiet:        true,
		Dataset:      "sales.csv",
		OutputPath:   path,
		OutputFormat: "json",
		Writer:       buf,
	}); err != nil {
		t.Fatalf("formatAndWriteOutput error: %v", err)
	}
	if !strings.Contains(buf.String(), `"dataset": "sales.csv"`) {
		t.Fatalf("expected JSON record, got %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !strings.Contains(string(data), `"content": "content"`) {
		t.Fatalf("unexpected file content: %q", string(data))
	}

	if err := formatAndWriteOutput("x", outputOptions{Quiet: true, OutputPath: path, OutputFormat: "yaml", Writer: buf}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	if err := setConfigValue(c, "provider", "local"); err != nil || c.Provider != ai.ProviderOllama {
		t.Fatalf("provider: %q, %v", c.Provider, err)
	}
	if err := setConfigValue(c, "csv_delimiter", "tab"); err != nil || c.CSVDelimiter != "\t" {
		t.Fatalf("csv_delimiter: %q, %v", c.CSVDelimiter, err)
	}
	if err := setConfigValue(c, "apply_generation_config", "false"); err != nil || c.ApplyGenerationConfig {
		t.Fatalf("apply_generation_config: %v, %v", c.ApplyGenerationConfig, err)
	}
	if err := setConfigValue(c, "max_upload_mb", "0"); err == nil {
		t.Fatal("expected error for max_upload_mb below 1")
	}
	if err := setConfigValue(c, "nope", "1"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestMask(t *testing.T) {
	if got := mask("abcdefghij"); got != "abc****hij" {
		t.Fatalf("mask = %q", got)
	}
	if got := mask("abc"); got != "******" {
		t.Fatalf("mask = %q", got)
	}
}
