package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rumoo/internal/model"
	"github.com/sells-group/rumoo/internal/resilience"
	"github.com/sells-group/rumoo/pkg/anthropic"
)

const (
	// DefaultMaxPhotos is the number of listing photos sent for analysis.
	DefaultMaxPhotos  = 8
	visionTemperature = 0.2
	visionMaxTokens   = 600
)

const visionSchema = `{
  "light_assessment": { "quality": "poor|fair|good|excellent", "natural_light_visible": true, "artificial_enhancement_suspected": false, "notes": "" },
  "spatial_assessment": { "size_impression": "cramped|compact|adequate|spacious", "ceiling_height": "low|standard|high", "flow": "poor|adequate|good", "notes": "" },
  "condition_assessment": { "overall": "poor|fair|good|excellent", "finishes": "basic|standard|premium|luxury", "estimated_renovation_age": "recent|5-10yr|10-20yr|dated", "notes": "" },
  "atmosphere": { "dominant_feeling": "", "calm_hectic_score": 50, "airy_dim_score": 50, "warm_cold_score": 50 },
  "red_flags": [],
  "confidence": "low|medium|high"
}`

// VisionAnalyzer assesses listing photos with a vision model.
type VisionAnalyzer struct {
	client    anthropic.Client
	guard     *resilience.Guard
	model     string
	maxPhotos int
}

// NewVisionAnalyzer creates a VisionAnalyzer. A nil client disables analysis.
func NewVisionAnalyzer(client anthropic.Client, guard *resilience.Guard, model string, maxPhotos int) *VisionAnalyzer {
	if maxPhotos <= 0 {
		maxPhotos = DefaultMaxPhotos
	}
	return &VisionAnalyzer{client: client, guard: guard, model: model, maxPhotos: maxPhotos}
}

// VisionPrompt is the instruction sent alongside n photos.
func VisionPrompt(n int) string {
	return fmt.Sprintf("Analyze these %d real estate listing photos. Return ONLY valid JSON, no markdown.\n\n%s", n, visionSchema)
}

// Analyze returns nil when disabled, given no photos, or on any failure.
func (v *VisionAnalyzer) Analyze(ctx context.Context, urls []string) *model.PhotoInsights {
	if v == nil || v.client == nil || len(urls) == 0 {
		return nil
	}
	if len(urls) > v.maxPhotos {
		urls = urls[:v.maxPhotos]
	}

	temp := visionTemperature
	req := anthropic.MessageRequest{
		Model:       v.model,
		MaxTokens:   visionMaxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:      "user",
			Content:   VisionPrompt(len(urls)),
			ImageURLs: urls,
		}},
	}

	resp, err := resilience.Call(ctx, v.guard, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return v.client.CreateMessage(ctx, req)
	})
	if err != nil {
		zap.L().Warn("enrich: vision request failed", zap.Int("photos", len(urls)), zap.Error(err))
		return nil
	}
	resp.Usage.LogCost(v.model, "vision")

	insights, err := ParsePhotoInsights(resp.Text())
	if err != nil {
		zap.L().Warn("enrich: vision response unparseable", zap.Error(err))
		return nil
	}
	return insights
}

// ParsePhotoInsights decodes model output, tolerating markdown code fences.
func ParsePhotoInsights(text string) (*model.PhotoInsights, error) {
	cleaned := strings.TrimSpace(strings.NewReplacer("```json", "", "```", "").Replace(text))
	if cleaned == "" {
		return nil, eris.New("enrich: empty vision response")
	}
	var pi *model.PhotoInsights
	if err := json.Unmarshal([]byte(cleaned), &pi); err != nil {
		return nil, eris.Wrap(err, "enrich: decode vision response")
	}
	if pi == nil || pi.IsZero() {
		return nil, eris.New("enrich: vision response has no assessment")
	}
	return pi, nil
}
