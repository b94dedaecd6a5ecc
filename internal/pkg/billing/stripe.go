package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/listingcraft/listingcraft/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

const (
	// SubscriptionAmountCents is the monthly subscription price ($39/month).
	SubscriptionAmountCents = 3900
	SubscriptionCurrency    = "usd"

	subscriptionProductName = "ListingCraft Monthly Subscription"
	subscriptionProductDesc = "Unlimited AI-powered real estate listing generations"
)

var ErrSubscriptionNotFound = errors.New("billing: subscription not found")

// StripeClient is a minimal form-encoded REST client for the Stripe API,
// covering customers, checkout sessions and subscription reads. Payment
// capture itself stays entirely on Stripe's side.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether a secret key is present.
func (c *StripeClient) Configured() bool {
	return c.SecretKey != ""
}

type Customer struct {
	ID string `json:"id"`
}

type CheckoutSession struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	PaymentStatus  string `json:"payment_status"`
	SubscriptionID string `json:"subscription"`
	CustomerID     string `json:"customer"`
}

type Subscription struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CustomerID        string `json:"customer"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

// PeriodEnd converts the subscription's period end to a time pointer, nil
// when Stripe sent none.
func (s *Subscription) PeriodEnd() *time.Time {
	if s.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
	return &t
}

// CreateCustomer creates a Stripe customer tagged with our user id.
func (c *StripeClient) CreateCustomer(ctx context.Context, userID string) (*Customer, error) {
	form := url.Values{}
	form.Set("metadata[appUserId]", userID)

	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("billing: customer creation returned empty id")
	}
	return &out, nil
}

// CreateCheckoutSession starts a subscription checkout with inline price
// data; no pre-provisioned price object is needed.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, customerID, userID, origin string) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("mode", "subscription")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", SubscriptionCurrency)
	form.Set("line_items[0][price_data][product_data][name]", subscriptionProductName)
	form.Set("line_items[0][price_data][product_data][description]", subscriptionProductDesc)
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(SubscriptionAmountCents))
	form.Set("line_items[0][price_data][recurring][interval]", "month")
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", origin+"/dashboard?subscription=success&session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", origin+"/pricing?subscription=cancelled")
	form.Set("subscription_data[metadata][appUserId]", userID)

	var out CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCheckoutSession retrieves a checkout session by id.
func (c *StripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("billing: session id is required")
	}
	var out CheckoutSession
	if err := c.do(ctx, http.MethodGet, "/checkout/sessions/"+sessionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubscription retrieves a subscription by id; a deleted or unknown
// subscription yields ErrSubscriptionNotFound.
func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, errors.New("billing: subscription id is required")
	}
	var out Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions/"+subscriptionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if !c.Configured() {
		return errors.New("billing: STRIPE_SECRET_KEY is not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrSubscriptionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("billing: stripe %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}
