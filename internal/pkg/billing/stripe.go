package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com"

// StripeClient implements ProviderClient against the Stripe REST API.
type StripeClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewStripeClientFromEnv builds a Stripe client from environment config.
func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type stripePrice struct {
	ID string `json:"id"`
}

type stripeSubscriptionItem struct {
	ID    string      `json:"id"`
	Price stripePrice `json:"price"`
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	Items              struct {
		Data []stripeSubscriptionItem `json:"data"`
	} `json:"items"`
}

type stripeSubscriptionList struct {
	Data []stripeSubscription `json:"data"`
}

type stripeInvoice struct {
	ID                string `json:"id"`
	Subscription      string `json:"subscription"`
	Status            string `json:"status"`
	AmountPaid        int64  `json:"amount_paid"`
	Currency          string `json:"currency"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
}

type stripeInvoiceList struct {
	Data []stripeInvoice `json:"data"`
}

type stripeCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s stripeSubscription) toProvider() ProviderSubscription {
	out := ProviderSubscription{
		ID:                 s.ID,
		CustomerID:         s.Customer,
		Status:             s.Status,
		CurrentPeriodStart: time.Unix(s.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(s.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
	}
	if len(s.Items.Data) > 0 {
		out.ItemID = s.Items.Data[0].ID
		out.PriceID = s.Items.Data[0].Price.ID
	}
	return out
}

func (i stripeInvoice) toProvider() ProviderInvoice {
	out := ProviderInvoice{
		ID:             i.ID,
		SubscriptionID: i.Subscription,
		Status:         i.Status,
		AmountCents:    i.AmountPaid,
		Currency:       strings.ToUpper(i.Currency),
	}
	if i.StatusTransitions.PaidAt > 0 {
		t := time.Unix(i.StatusTransitions.PaidAt, 0).UTC()
		out.PaidAt = &t
	}
	return out
}

// doRequest issues one authenticated call and decodes the response into out.
// Stripe 404s are mapped to ErrProviderNotFound.
func (c *StripeClient) doRequest(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return fmt.Errorf("stripe: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("stripe: %s %s: %w", method, path, ErrProviderNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("stripe: %s %s: status=%d body=%s", method, path, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("stripe: decode response: %w", err)
	}
	return nil
}

func (c *StripeClient) CreateCustomer(ctx context.Context, name, email string) (*ProviderCustomer, error) {
	form := url.Values{}
	form.Set("name", name)
	form.Set("email", email)

	var cust stripeCustomer
	if err := c.doRequest(ctx, http.MethodPost, "/v1/customers", form, &cust); err != nil {
		return nil, err
	}
	return &ProviderCustomer{ID: cust.ID, Name: cust.Name, Email: cust.Email}, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	var sub stripeSubscription
	if err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, &sub); err != nil {
		return nil, err
	}
	out := sub.toProvider()
	return &out, nil
}

func (c *StripeClient) ListSubscriptions(ctx context.Context, customerID string, limit int) ([]ProviderSubscription, error) {
	q := url.Values{}
	q.Set("customer", customerID)
	q.Set("status", "all")
	q.Set("limit", strconv.Itoa(limit))

	var list stripeSubscriptionList
	if err := c.doRequest(ctx, http.MethodGet, "/v1/subscriptions?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	subs := make([]ProviderSubscription, 0, len(list.Data))
	for _, s := range list.Data {
		subs = append(subs, s.toProvider())
	}
	return subs, nil
}

func (c *StripeClient) ListInvoices(ctx context.Context, subscriptionID string, limit int) ([]ProviderInvoice, error) {
	q := url.Values{}
	q.Set("subscription", subscriptionID)
	q.Set("limit", strconv.Itoa(limit))

	var list stripeInvoiceList
	if err := c.doRequest(ctx, http.MethodGet, "/v1/invoices?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	invoices := make([]ProviderInvoice, 0, len(list.Data))
	for _, i := range list.Data {
		invoices = append(invoices, i.toProvider())
	}
	return invoices, nil
}

// UpdateSubscriptionPrice swaps the subscription's single item onto a new
// price. Stripe requires the existing item id for an in-place swap, so the
// subscription is fetched first.
func (c *StripeClient) UpdateSubscriptionPrice(ctx context.Context, subscriptionID, priceID string, proration ProrationMode) (*ProviderSubscription, error) {
	current, err := c.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if current.ItemID == "" {
		return nil, fmt.Errorf("stripe: subscription %s has no item to reprice", subscriptionID)
	}

	form := url.Values{}
	form.Set("items[0][id]", current.ItemID)
	form.Set("items[0][price]", priceID)
	if proration == "" {
		proration = ProrationCreateProrations
	}
	form.Set("proration_behavior", string(proration))

	var sub stripeSubscription
	if err := c.doRequest(ctx, http.MethodPost, "/v1/subscriptions/"+url.PathEscape(subscriptionID), form, &sub); err != nil {
		return nil, err
	}
	out := sub.toProvider()
	return &out, nil
}

func (c *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*ProviderSubscription, error) {
	var sub stripeSubscription
	if atPeriodEnd {
		form := url.Values{}
		form.Set("cancel_at_period_end", "true")
		if err := c.doRequest(ctx, http.MethodPost, "/v1/subscriptions/"+url.PathEscape(subscriptionID), form, &sub); err != nil {
			return nil, err
		}
	} else {
		if err := c.doRequest(ctx, http.MethodDelete, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil, &sub); err != nil {
			return nil, err
		}
	}
	out := sub.toProvider()
	return &out, nil
}
