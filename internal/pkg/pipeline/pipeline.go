package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/listingcraft/listingcraft/internal/pkg/env"
	"github.com/listingcraft/listingcraft/internal/pkg/generation"
	"github.com/listingcraft/listingcraft/internal/pkg/logger"
)

const (
	// MaxImages bounds one generation request.
	MaxImages = 5

	noTextSentinel        = "No text detected in images."
	noTextDisplaySentinel = "No text detected in images by Google Vision OCR."
	visualPlaceholder     = "Unable to analyze visual features."

	defaultVisualTimeout    = 30 * time.Second
	defaultSynthesisTimeout = 45 * time.Second
	defaultMockDelay        = 1500 * time.Millisecond
)

var (
	ErrNoImages      = errors.New("No images provided")
	ErrTooManyImages = errors.New("Maximum 5 images allowed")
)

// OCRMode selects Stage A behavior; it is keyed only on OCR credential
// presence, independent of the generation mock flag, so real OCR can be
// validated while the generative stages run on stubs.
type OCRMode string

const (
	OCRReal   OCRMode = "real"
	OCRAbsent OCRMode = "absent"
)

// GenerationMode selects Stage B/C behavior.
type GenerationMode string

const (
	GenerationReal GenerationMode = "real"
	GenerationMock GenerationMode = "mock"
)

// Modes carries one explicit switch per capability.
type Modes struct {
	OCR        OCRMode
	Generation GenerationMode
}

// ModesFromEnv derives the capability switches once at startup:
// GOOGLE_VISION_API_KEY presence enables real OCR; USE_MOCK_DATA=true or a
// missing OPENAI_API_KEY forces the generative stages into mock mode.
func ModesFromEnv() Modes {
	m := Modes{OCR: OCRAbsent, Generation: GenerationMock}
	if strings.TrimSpace(env.GetEnv("GOOGLE_VISION_API_KEY", "")) != "" {
		m.OCR = OCRReal
	}
	useMock := env.GetEnv("USE_MOCK_DATA", "") == "true"
	if !useMock && strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")) != "" {
		m.Generation = GenerationReal
	}
	return m
}

// OCRClient is the text-extraction adapter (Stage A).
type OCRClient interface {
	DetectText(ctx context.Context, imageBase64 string) (string, error)
}

// Image is one prepared photo of a generation request, base64-encoded JPEG.
type Image struct {
	Base64 string
}

func (i Image) dataURL() string {
	return "data:image/jpeg;base64," + i.Base64
}

// Result is the assembled marketing copy for one request.
type Result struct {
	MLSDescription string   `json:"mlsDescription"`
	Hashtags       []string `json:"hashtags"`
	SocialCaption  string   `json:"socialCaption"`
	CarouselText   string   `json:"carouselText"`
	OCRText        string   `json:"ocrText,omitempty"`
	IsRealOCR      bool     `json:"isRealOCR"`
}

// Processor runs the three-stage generation pipeline for one request:
// OCR fan-out, visual analysis, content synthesis.
type Processor struct {
	modes Modes
	ocr   OCRClient
	gen   generation.Client
	log   zerolog.Logger

	visualTimeout    time.Duration
	synthesisTimeout time.Duration
	mockDelay        time.Duration
}

func NewProcessor(modes Modes, ocr OCRClient, gen generation.Client) *Processor {
	return &Processor{
		modes:            modes,
		ocr:              ocr,
		gen:              gen,
		log:              logger.With("pipeline"),
		visualTimeout:    defaultVisualTimeout,
		synthesisTimeout: defaultSynthesisTimeout,
		mockDelay:        defaultMockDelay,
	}
}

// WithTimeouts overrides the stage timeouts and the mock synthesis delay.
func (p *Processor) WithTimeouts(visual, synthesis, mockDelay time.Duration) *Processor {
	p.visualTimeout = visual
	p.synthesisTimeout = synthesis
	p.mockDelay = mockDelay
	return p
}

// Process validates the request and runs the stages in sequence. Stage A
// and B failures degrade; only validation and Stage C can fail the request.
func (p *Processor) Process(ctx context.Context, images []Image) (*Result, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if len(images) > MaxImages {
		return nil, ErrTooManyImages
	}

	log := p.log.With().Str("request_id", uuid.New().String()).Int("images", len(images)).Logger()

	extracted, ocrDisplay, isRealOCR := p.extractText(ctx, images, log)
	visual := p.analyzeVisuals(ctx, images, log)

	combined := strings.TrimSpace(fmt.Sprintf(
		"EXTRACTED TEXT FROM DOCUMENTS/IMAGES:\n%s\n\nVISUAL FEATURES IDENTIFIED:\n%s",
		extracted, visual,
	))

	content, err := p.synthesize(ctx, combined, len(images), log)
	if err != nil {
		return nil, err
	}

	return &Result{
		MLSDescription: content.MLSDescription,
		Hashtags:       NormalizeHashtags(content.Hashtags),
		SocialCaption:  content.SocialCaption,
		CarouselText:   content.CarouselText,
		OCRText:        ocrDisplay,
		IsRealOCR:      isRealOCR,
	}, nil
}

// extractText is Stage A: one OCR call per image, fully parallel. A failed
// or empty extraction contributes nothing for that image and never fails
// the stage; results keep input order.
func (p *Processor) extractText(ctx context.Context, images []Image, log zerolog.Logger) (extracted, display string, isReal bool) {
	if p.modes.OCR != OCRReal {
		log.Info().Msg("vision credentials absent, using stub OCR text")
		return generation.MockOCRText, generation.MockOCRText, false
	}

	texts := make([]string, len(images))
	var wg sync.WaitGroup
	for i := range images {
		wg.Add(1)
		go func(i int, b64 string) {
			defer wg.Done()
			text, err := p.ocr.DetectText(ctx, b64)
			if err != nil {
				log.Warn().Err(err).Int("image_index", i).Msg("ocr failed for image, continuing without its text")
				return
			}
			texts[i] = text
		}(i, images[i].Base64)
	}
	wg.Wait()

	nonEmpty := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	joined := strings.Join(nonEmpty, "\n\n")
	if joined == "" {
		return noTextSentinel, noTextDisplaySentinel, false
	}
	return joined, joined, true
}

// analyzeVisuals is Stage B: one multimodal call raced against a timer.
// Timeouts and provider errors degrade to a neutral placeholder; the losing
// call keeps running and its result is dropped.
func (p *Processor) analyzeVisuals(ctx context.Context, images []Image, log zerolog.Logger) string {
	if p.modes.Generation == GenerationMock {
		log.Info().Msg("generation running in mock mode, skipping visual analysis call")
		return generation.MockVisualAnalysis
	}

	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.dataURL()
	}

	type analysisResult struct {
		text string
		err  error
	}
	ch := make(chan analysisResult, 1)
	go func() {
		text, err := p.gen.AnalyzeImages(context.WithoutCancel(ctx), urls)
		ch <- analysisResult{text: text, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			log.Warn().Err(r.err).Msg("visual analysis failed, degrading to placeholder")
			return visualPlaceholder
		}
		if strings.TrimSpace(r.text) == "" {
			return visualPlaceholder
		}
		return r.text
	case <-time.After(p.visualTimeout):
		log.Warn().Dur("timeout", p.visualTimeout).Msg("visual analysis timed out, degrading to placeholder")
		return visualPlaceholder
	}
}

// synthesize is Stage C: one JSON-mode call raced against a timer. Unlike
// Stage B there is no safe placeholder for primary listing copy, so a
// timeout, parse failure or missing field fails the whole request.
func (p *Processor) synthesize(ctx context.Context, combined string, imageCount int, log zerolog.Logger) (generation.ListingContent, error) {
	if p.modes.Generation == GenerationMock {
		log.Info().Msg("generation running in mock mode, returning stub listing content")
		// Keep perceived latency realistic for UI testing.
		select {
		case <-time.After(p.mockDelay):
		case <-ctx.Done():
			return generation.ListingContent{}, ctx.Err()
		}
		return generation.MockListingContent(imageCount), nil
	}

	type synthesisResult struct {
		raw string
		err error
	}
	ch := make(chan synthesisResult, 1)
	go func() {
		raw, err := p.gen.GenerateListing(context.WithoutCancel(ctx), combined)
		ch <- synthesisResult{raw: raw, err: err}
	}()

	var raw string
	select {
	case r := <-ch:
		if r.err != nil {
			return generation.ListingContent{}, fmt.Errorf("listing generation failed: %w", r.err)
		}
		raw = r.raw
	case <-time.After(p.synthesisTimeout):
		log.Error().Dur("timeout", p.synthesisTimeout).Msg("content synthesis timed out")
		return generation.ListingContent{}, errors.New("Content generation timeout")
	}

	var content generation.ListingContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		log.Error().Err(err).Msg("failed to parse synthesis response")
		return generation.ListingContent{}, errors.New("Invalid response format from AI service")
	}
	if content.MLSDescription == "" || content.SocialCaption == "" || content.CarouselText == "" {
		return generation.ListingContent{}, errors.New("Incomplete response from AI service")
	}
	return content, nil
}
