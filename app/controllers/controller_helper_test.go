package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/listingcraft/listingcraft/internal/pkg/billing"
	"github.com/listingcraft/listingcraft/internal/pkg/entitlements"
	"github.com/listingcraft/listingcraft/internal/pkg/pipeline"
	"github.com/listingcraft/listingcraft/internal/pkg/usercontext"
)

// memStore is an in-memory entitlement store for handler tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]entitlements.Record
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]entitlements.Record{}}
}

func (m *memStore) Get(_ context.Context, userID string) (entitlements.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return entitlements.Record{}, m.getErr
	}
	rec, ok := m.records[userID]
	if !ok {
		return entitlements.Record{SubscriptionStatus: entitlements.StatusNone}, nil
	}
	return rec, nil
}

func (m *memStore) Patch(_ context.Context, userID string, p entitlements.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[userID]
	if p.SubscriptionStatus != nil {
		rec.SubscriptionStatus = *p.SubscriptionStatus
	}
	if p.ListingCount != nil {
		rec.ListingCount = *p.ListingCount
	}
	if p.TrialStartDate != nil {
		rec.TrialStartDate = p.TrialStartDate
	}
	if p.SubscriptionEndDate != nil {
		rec.SubscriptionEndDate = p.SubscriptionEndDate
	}
	if p.StripeCustomerID != nil {
		rec.StripeCustomerID = *p.StripeCustomerID
	}
	if p.StripeSubscriptionID != nil {
		rec.StripeSubscriptionID = *p.StripeSubscriptionID
	}
	m.records[userID] = rec
	return nil
}

func (m *memStore) record(userID string) entitlements.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[userID]
}

func (m *memStore) put(userID string, rec entitlements.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = rec
}

// memSlots is an in-memory slot reserver.
type memSlots struct {
	mu   sync.Mutex
	held map[string]int
}

func newMemSlots() *memSlots {
	return &memSlots{held: map[string]int{}}
}

func (m *memSlots) Reserve(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[userID]++
	return m.held[userID], nil
}

func (m *memSlots) Release(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[userID] > 0 {
		m.held[userID]--
	}
	return nil
}

// mockProcessor returns a pipeline with stubbed OCR and generation so handler
// tests never reach external services.
func mockProcessor() *pipeline.Processor {
	modes := pipeline.Modes{OCR: pipeline.OCRAbsent, Generation: pipeline.GenerationMock}
	return pipeline.NewProcessor(modes, nil, nil).WithTimeouts(time.Second, time.Second, 0)
}

// newTestApp wires the handlers behind a fiber app. When loggedIn is set a
// fixed test user rides in on every request.
func newTestApp(store entitlements.Store, stripe *billing.StripeClient, loggedIn bool) *fiber.App {
	svc := entitlements.NewService(store, newMemSlots(), entitlements.Limits{TrialDays: 3, FreeQuota: 2})
	Initialize(svc, mockProcessor(), stripe)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		uc := usercontext.UserContext{IsLoggedIn: false}
		if loggedIn {
			uc = usercontext.UserContext{UserID: "user_test", Email: "agent@example.com", IsLoggedIn: true}
		}
		c.Locals(usercontext.KeyUserContext, uc)
		return c.Next()
	})
	app.Post("/api/v1/listings/process", HandleProcessImages)
	app.Get("/api/v1/user/entitlements", HandleUserEntitlements)
	app.Post("/api/v1/billing/checkout", HandleCreateCheckout)
	app.Get("/api/v1/billing/subscription", HandleSubscriptionStatus)
	app.Post("/api/v1/billing/sync", HandleSyncSubscription)
	return app
}

func testStripe(ts *httptest.Server) *billing.StripeClient {
	return &billing.StripeClient{
		SecretKey:  "sk_test_123",
		APIBaseURL: ts.URL,
		HTTPClient: ts.Client(),
	}
}

// unusedStripe stands in for handlers whose test path never talks to Stripe.
func unusedStripe() *billing.StripeClient {
	return &billing.StripeClient{HTTPClient: http.DefaultClient}
}

func pastTrialStart() time.Time {
	return time.Now().AddDate(0, 0, -10)
}

// multipartImages builds a multipart body with the given number of small PNG
// photos under the "images" field.
func multipartImages(t *testing.T, count int) (io.Reader, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 180, B: 160, A: 255})
		}
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for i := 0; i < count; i++ {
		part, err := w.CreateFormFile("images", "photo.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(pngBuf.Bytes()); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, w.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal response %q: %v", raw, err)
	}
	return out
}
