package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/listingcraft/listingcraft/internal/pkg/generation"
)

// stubOCR returns canned text keyed by image payload.
type stubOCR struct {
	texts map[string]string
	errs  map[string]error
}

func (s *stubOCR) DetectText(_ context.Context, imageBase64 string) (string, error) {
	if err, ok := s.errs[imageBase64]; ok {
		return "", err
	}
	return s.texts[imageBase64], nil
}

// stubGen is a scriptable generation client with optional per-call delays.
type stubGen struct {
	analyzeText  string
	analyzeErr   error
	analyzeDelay time.Duration

	listingJSON  string
	listingErr   error
	listingDelay time.Duration

	mu           sync.Mutex
	lastCombined string
}

func (s *stubGen) AnalyzeImages(_ context.Context, _ []string) (string, error) {
	if s.analyzeDelay > 0 {
		time.Sleep(s.analyzeDelay)
	}
	return s.analyzeText, s.analyzeErr
}

func (s *stubGen) GenerateListing(_ context.Context, combinedContext string) (string, error) {
	s.mu.Lock()
	s.lastCombined = combinedContext
	s.mu.Unlock()
	if s.listingDelay > 0 {
		time.Sleep(s.listingDelay)
	}
	return s.listingJSON, s.listingErr
}

func (s *stubGen) combined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCombined
}

const validListingJSON = `{
	"mlsDescription": "Charming three-bedroom home with updated kitchen.",
	"hashtags": ["DreamHome", "#JustListed "],
	"socialCaption": "Just listed and ready for you!",
	"carouselText": "3 Beds | 2 Baths | Move-In Ready"
}`

func realGenProcessor(gen generation.Client) *Processor {
	modes := Modes{OCR: OCRAbsent, Generation: GenerationReal}
	return NewProcessor(modes, nil, gen).WithTimeouts(50*time.Millisecond, 100*time.Millisecond, 0)
}

func TestProcessValidatesImageCount(t *testing.T) {
	p := NewProcessor(Modes{OCR: OCRAbsent, Generation: GenerationMock}, nil, nil).
		WithTimeouts(time.Second, time.Second, 0)

	if _, err := p.Process(context.Background(), nil); !errors.Is(err, ErrNoImages) {
		t.Fatalf("zero images err = %v, want ErrNoImages", err)
	}

	six := make([]Image, 6)
	for i := range six {
		six[i] = Image{Base64: "x"}
	}
	if _, err := p.Process(context.Background(), six); !errors.Is(err, ErrTooManyImages) {
		t.Fatalf("six images err = %v, want ErrTooManyImages", err)
	}
}

func TestProcessMockMode(t *testing.T) {
	p := NewProcessor(Modes{OCR: OCRAbsent, Generation: GenerationMock}, nil, nil).
		WithTimeouts(time.Second, time.Second, 0)

	res, err := p.Process(context.Background(), []Image{{Base64: "a"}, {Base64: "b"}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.IsRealOCR {
		t.Fatal("mock mode must not report real OCR")
	}
	if res.OCRText != generation.MockOCRText {
		t.Fatalf("ocr text = %q, want mock fixture", res.OCRText)
	}
	if res.MLSDescription == "" || res.SocialCaption == "" || res.CarouselText == "" {
		t.Fatal("mock content has empty fields")
	}
	if !strings.Contains(res.MLSDescription, "2") {
		t.Fatalf("mock description should mention the image count, got %q", res.MLSDescription)
	}
	if len(res.Hashtags) != 5 {
		t.Fatalf("hashtags = %d, want 5", len(res.Hashtags))
	}
}

func TestProcessMockModeRespectsContextCancel(t *testing.T) {
	p := NewProcessor(Modes{OCR: OCRAbsent, Generation: GenerationMock}, nil, nil).
		WithTimeouts(time.Second, time.Second, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(ctx, []Image{{Base64: "a"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExtractTextSkipsFailedImages(t *testing.T) {
	ocr := &stubOCR{
		texts: map[string]string{"img1": "OPEN HOUSE SUNDAY", "img3": "123 Maple Street"},
		errs:  map[string]error{"img2": errors.New("vision: 503")},
	}
	p := NewProcessor(Modes{OCR: OCRReal, Generation: GenerationMock}, ocr, nil).
		WithTimeouts(time.Second, time.Second, 0)

	res, err := p.Process(context.Background(), []Image{{Base64: "img1"}, {Base64: "img2"}, {Base64: "img3"}})
	if err != nil {
		t.Fatalf("one failed OCR call must not fail the request: %v", err)
	}
	if !res.IsRealOCR {
		t.Fatal("expected real OCR flag")
	}
	want := "OPEN HOUSE SUNDAY\n\n123 Maple Street"
	if res.OCRText != want {
		t.Fatalf("ocr text = %q, want %q", res.OCRText, want)
	}
}

func TestExtractTextAllEmptyUsesSentinel(t *testing.T) {
	ocr := &stubOCR{texts: map[string]string{"img1": "", "img2": "   "}}
	p := NewProcessor(Modes{OCR: OCRReal, Generation: GenerationMock}, ocr, nil).
		WithTimeouts(time.Second, time.Second, 0)

	res, err := p.Process(context.Background(), []Image{{Base64: "img1"}, {Base64: "img2"}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.IsRealOCR {
		t.Fatal("no detected text must not count as real OCR")
	}
	if res.OCRText != "No text detected in images by Google Vision OCR." {
		t.Fatalf("ocr text = %q", res.OCRText)
	}
}

func TestVisualAnalysisTimeoutDegrades(t *testing.T) {
	gen := &stubGen{
		analyzeDelay: 200 * time.Millisecond, // well past the 50ms stage budget
		analyzeText:  "never delivered in time",
		listingJSON:  validListingJSON,
	}
	p := realGenProcessor(gen)

	res, err := p.Process(context.Background(), []Image{{Base64: "a"}})
	if err != nil {
		t.Fatalf("visual timeout must not fail the request: %v", err)
	}
	if res.MLSDescription == "" {
		t.Fatal("expected synthesized content despite visual timeout")
	}
	if !strings.Contains(gen.combined(), "Unable to analyze visual features.") {
		t.Fatalf("synthesis input missing placeholder, got %q", gen.combined())
	}
}

func TestVisualAnalysisErrorDegrades(t *testing.T) {
	gen := &stubGen{
		analyzeErr:  errors.New("openai: 429"),
		listingJSON: validListingJSON,
	}
	p := realGenProcessor(gen)

	if _, err := p.Process(context.Background(), []Image{{Base64: "a"}}); err != nil {
		t.Fatalf("visual error must not fail the request: %v", err)
	}
	if !strings.Contains(gen.combined(), "Unable to analyze visual features.") {
		t.Fatalf("synthesis input missing placeholder, got %q", gen.combined())
	}
}

func TestSynthesisTimeoutFailsRequest(t *testing.T) {
	gen := &stubGen{
		analyzeText:  "Bright living room with hardwood floors.",
		listingDelay: 300 * time.Millisecond, // past the 100ms stage budget
		listingJSON:  validListingJSON,
	}
	p := realGenProcessor(gen)

	_, err := p.Process(context.Background(), []Image{{Base64: "a"}})
	if err == nil {
		t.Fatal("expected synthesis timeout to fail the request")
	}
	if err.Error() != "Content generation timeout" {
		t.Fatalf("err = %q", err.Error())
	}
}

func TestSynthesisRejectsMalformedJSON(t *testing.T) {
	gen := &stubGen{analyzeText: "ok", listingJSON: "not json at all"}
	p := realGenProcessor(gen)

	_, err := p.Process(context.Background(), []Image{{Base64: "a"}})
	if err == nil || err.Error() != "Invalid response format from AI service" {
		t.Fatalf("err = %v", err)
	}
}

func TestSynthesisRejectsIncompleteContent(t *testing.T) {
	gen := &stubGen{
		analyzeText: "ok",
		listingJSON: `{"mlsDescription": "only this field", "hashtags": ["#x1"]}`,
	}
	p := realGenProcessor(gen)

	_, err := p.Process(context.Background(), []Image{{Base64: "a"}})
	if err == nil || err.Error() != "Incomplete response from AI service" {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessNormalizesHashtags(t *testing.T) {
	gen := &stubGen{analyzeText: "ok", listingJSON: validListingJSON}
	p := realGenProcessor(gen)

	res, err := p.Process(context.Background(), []Image{{Base64: "a"}})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []string{"#DreamHome", "#JustListed"}
	if len(res.Hashtags) != len(want) || res.Hashtags[0] != want[0] || res.Hashtags[1] != want[1] {
		t.Fatalf("hashtags = %q, want %q", res.Hashtags, want)
	}
}

func TestSynthesisInputCarriesBothSections(t *testing.T) {
	gen := &stubGen{
		analyzeText: "Granite countertops, stainless appliances.",
		listingJSON: validListingJSON,
	}
	p := realGenProcessor(gen)

	if _, err := p.Process(context.Background(), []Image{{Base64: "a"}}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	combined := gen.combined()
	if !strings.Contains(combined, "EXTRACTED TEXT FROM DOCUMENTS/IMAGES:") {
		t.Fatalf("missing extracted-text header: %q", combined)
	}
	if !strings.Contains(combined, "VISUAL FEATURES IDENTIFIED:") {
		t.Fatalf("missing visual-features header: %q", combined)
	}
	if !strings.Contains(combined, "Granite countertops") {
		t.Fatalf("visual analysis text not forwarded: %q", combined)
	}
}
