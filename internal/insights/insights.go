// Package insights asks a text generation runtime for a natural-language
// summary of a dataset.
package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/datadash/internal/ai"
	"github.com/KaramelBytes/datadash/internal/analysis"
	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/KaramelBytes/datadash/internal/utils"
)

// State of the insights panel.
type State int

const (
	Idle State = iota
	Awaiting
	Displaying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Awaiting:
		return "awaiting"
	case Displaying:
		return "displaying"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Panel is the insights section of one session. Text holds the model output
// or the error message once the panel is Displaying.
type Panel struct {
	State State
	Text  string
	// Failed marks Text as an error message.
	Failed bool
}

// ErrorPrefix starts every failure message shown in the panel.
const ErrorPrefix = "Error generating insights: "

var errNoTable = errors.New("no dataset loaded")

// BuildPrompt renders the fixed analysis prompt for t.
func BuildPrompt(t *dataset.Table) string {
	stats := dataset.ComputeStats(t)
	var b strings.Builder
	b.WriteString("Analyze this dataset and provide key insights:\n\n")
	b.WriteString("Dataset Summary:\n")
	fmt.Fprintf(&b, "- Shape: %s\n", t.Shape())
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(t.Names(), ", "))
	fmt.Fprintf(&b, "- Numeric columns: %s\n", strings.Join(dataset.NumericColumns(t), ", "))
	fmt.Fprintf(&b, "- Categorical columns: %s\n", strings.Join(dataset.CategoricalColumns(t), ", "))
	fmt.Fprintf(&b, "- Missing values: %d\n\n", stats.Missing)
	b.WriteString("Basic Statistics:\n")
	b.WriteString(analysis.Describe(t).String())
	b.WriteString("\n\nPlease provide:\n")
	b.WriteString("1. Key observations about the data\n")
	b.WriteString("2. Potential patterns or trends\n")
	b.WriteString("3. Suggestions for visualization\n")
	b.WriteString("4. Data quality issues if any\n")
	return b.String()
}

// Service sends prompts to a runtime with a fixed model and generation settings.
type Service struct {
	runtime     ai.Runtime
	model       string
	maxTokens   int
	temperature float64
	log         *zerolog.Logger
}

// NewService returns a Service. A nil logger disables logging.
func NewService(rt ai.Runtime, model string, maxTokens int, temperature float64, log *zerolog.Logger) *Service {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Service{runtime: rt, model: model, maxTokens: maxTokens, temperature: temperature, log: log}
}

// Model returns the configured model identifier.
func (s *Service) Model() string { return s.model }

// Begin moves a panel into Awaiting, clearing any previous result.
func Begin(Panel) Panel {
	return Panel{State: Awaiting}
}

// Request runs one insight request for t and returns the panel in Displaying
// state. The call blocks until the runtime answers, fails, or ctx is done.
// Failures are folded into the panel text and never returned.
func (s *Service) Request(ctx context.Context, p Panel, t *dataset.Table) Panel {
	text, err := s.generate(ctx, t, p.State)
	if err != nil {
		return Panel{State: Displaying, Text: ErrorPrefix + err.Error(), Failed: true}
	}
	return Panel{State: Displaying, Text: text}
}

// Generate builds the prompt for t and returns the raw model text.
func (s *Service) Generate(ctx context.Context, t *dataset.Table) (string, error) {
	return s.generate(ctx, t, Idle)
}

func (s *Service) generate(ctx context.Context, t *dataset.Table, from State) (string, error) {
	if t == nil {
		return "", errNoTable
	}
	if s.runtime == nil {
		return "", errors.New("no text generation runtime configured")
	}
	prompt := BuildPrompt(t)
	start := time.Now()
	resp, err := s.runtime.Generate(ctx, ai.GenerateRequest{
		Model:       s.model,
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Warn().Err(err).Str("kind", ai.Kind(err)).Int("status", ai.StatusCode(err))
	}
	ev.Str("model", s.model).
		Stringer("from", from).
		Str("dataset", t.Name).
		Int("prompt_tokens_est", utils.CountTokens(prompt)).
		Dur("took", time.Since(start))
	if err != nil {
		ev.Msg("insights request failed")
		return "", err
	}
	ev.Str("request_id", resp.RequestID).Int("completion_tokens", resp.Usage.CompletionTokens).Msg("insights generated")
	return resp.Text(), nil
}
