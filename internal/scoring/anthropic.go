package scoring

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/rumoo/pkg/anthropic"
)

const editorialSystemPrompt = `You edit short passages for a home-buyer livability certificate.
Rewrite the draft in a calm, precise editorial voice. Keep every fact and number.
Do not add claims that are not in the draft or the listed signals.
Return only the rewritten text, with no preamble and no markdown.`

// AnthropicEditorial phrases editorial text with Claude, starting from the
// template draft. Any provider failure yields the template text unchanged.
type AnthropicEditorial struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	templates TemplateEditorial
}

// NewAnthropicEditorial creates an LLM-backed editorial generator.
func NewAnthropicEditorial(client anthropic.Client, model string, maxTokens int64) *AnthropicEditorial {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &AnthropicEditorial{client: client, model: model, maxTokens: maxTokens}
}

func (a *AnthropicEditorial) OneSentence(ctx context.Context, in EditorialInput) (string, error) {
	draft, err := a.templates.OneSentence(ctx, in)
	if err != nil {
		return "", err
	}
	return a.rewrite(ctx, "one_sentence", "a single sentence", draft, in), nil
}

func (a *AnthropicEditorial) Summary(ctx context.Context, in EditorialInput) (string, error) {
	draft, err := a.templates.Summary(ctx, in)
	if err != nil {
		return "", err
	}
	out := a.rewrite(ctx, "editorial_summary", "one paragraph of at most five sentences", draft, in)
	if in.Property != nil && !strings.HasSuffix(out, VerificationReminder) {
		out = strings.TrimSpace(out) + " " + VerificationReminder
	}
	return out, nil
}

func (a *AnthropicEditorial) rewrite(ctx context.Context, field, shape, draft string, in EditorialInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite this certificate %s as %s.\n\n", field, shape)
	fmt.Fprintf(&b, "Experience state: %s\nTrajectory: %s\n", in.State, in.Trajectory)
	if len(in.Signals) > 0 {
		b.WriteString("Signals:\n")
		for _, s := range in.Signals {
			fmt.Fprintf(&b, "- %s (%s): %s\n", s.Name, s.State, s.ShortExplanation)
		}
	}
	fmt.Fprintf(&b, "\nDraft:\n%s", draft)

	temp := 0.3
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      editorialSystemPrompt,
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Content: b.String()}},
	})
	if err != nil {
		zap.L().Warn("editorial: llm rewrite failed, using template",
			zap.String("field", field), zap.Error(err))
		return draft
	}
	resp.Usage.LogCost(a.model, "editorial")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		zap.L().Warn("editorial: empty llm response, using template", zap.String("field", field))
		return draft
	}
	return text
}
