// Package vision reads dish listings off menu photos with a Gemini
// multimodal model.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"menulens/internal/domain"
	"menulens/internal/infra"
)

const (
	extractTimeout  = 60 * time.Second
	extractAttempts = 3
)

const extractPrompt = `You are reading a photographed restaurant menu.
Extract every dish into strict JSON with this shape:
{"items":[{"name":"","description":"","price":"","section":""}],"currency_hints":[""]}

Rules:
- "name" is the dish name exactly as printed.
- "description" is the ingredient line under the name, or "" when absent.
- "price" is the printed price with its symbol, or "" when absent.
- "section" is the menu heading the dish sits under, or "" when absent.
- "currency_hints" lists every currency symbol or code seen next to prices, in reading order.
- Skip decorative text, opening hours and contact details.
- Output only the JSON object. No commentary, no markdown fences.`

// Extractor turns a menu photo into structured dishes.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte, mimeType string) (domain.ExtractedMenu, error)
}

// GeminiExtractor calls a Gemini vision model. A fresh SDK client is opened
// per call and closed before returning.
type GeminiExtractor struct {
	apiKey string
	model  string
	logger infra.Logger

	sleep func(d time.Duration)
}

var _ Extractor = (*GeminiExtractor)(nil)

func NewGeminiExtractor(apiKey, model string, logger infra.Logger) *GeminiExtractor {
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiExtractor{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Extract runs the vision model over the photo and decodes its JSON answer.
// Failed calls are retried with a short linear backoff.
func (e *GeminiExtractor) Extract(ctx context.Context, imageData []byte, mimeType string) (domain.ExtractedMenu, error) {
	if e.apiKey == "" {
		return domain.ExtractedMenu{}, errors.New("GEMINI_API_KEY is empty")
	}
	if len(imageData) == 0 {
		return domain.ExtractedMenu{}, fmt.Errorf("%w: empty image", domain.ErrInvalidImage)
	}

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return domain.ExtractedMenu{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}

	parts := []genai.Part{
		genai.Text(extractPrompt),
		&genai.Blob{MIMEType: mimeType, Data: imageData},
	}

	var lastErr error
	for attempt := 1; attempt <= extractAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.ExtractedMenu{}, err
		}

		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			e.logger.Warn().Err(err).Int("attempt", attempt).Msg("vision: extraction call failed")
			e.sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}

		txt := firstText(resp)
		if txt == "" {
			lastErr = errors.New("empty model response")
			e.sleep(time.Duration(attempt) * 300 * time.Millisecond)
			continue
		}

		menu, err := decodeMenu(txt)
		if err != nil {
			return domain.ExtractedMenu{}, err
		}
		e.logger.Debug().Int("items", len(menu.Items)).Msg("vision: menu extracted")
		return menu, nil
	}
	return domain.ExtractedMenu{}, fmt.Errorf("menu extraction failed: %w", lastErr)
}

func decodeMenu(raw string) (domain.ExtractedMenu, error) {
	cleaned := stripCodeFences(strings.TrimSpace(raw))

	var menu domain.ExtractedMenu
	if err := json.Unmarshal([]byte(cleaned), &menu); err != nil {
		return domain.ExtractedMenu{}, fmt.Errorf("decode extraction: %w", err)
	}

	items := menu.Items[:0]
	for _, it := range menu.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			continue
		}
		it.Description = strings.TrimSpace(it.Description)
		it.Price = strings.TrimSpace(it.Price)
		it.Section = strings.TrimSpace(it.Section)
		items = append(items, it)
	}
	menu.Items = items
	return menu, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func ptrFloat32(v float32) *float32 { return &v }
