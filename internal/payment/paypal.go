package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PayPal talks to the PayPal Orders v2 REST API. One instance per process,
// configured once with currency and intent.
type PayPal struct {
	HTTP     *http.Client
	BaseURL  string
	ClientID string
	Secret   string
	Currency string
	Intent   string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPayPal(baseURL, clientID, secret, currency, intent string) *PayPal {
	return &PayPal{
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ClientID: clientID,
		Secret:   secret,
		Currency: currency,
		Intent:   strings.ToUpper(intent),
	}
}

func (p *PayPal) Ready() bool { return p.ClientID != "" && p.Secret != "" }

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" && time.Now().Before(p.tokenExp) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.ClientID, p.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := p.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token error: %s", res.Status)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	p.token = out.AccessToken
	// renew a minute early
	p.tokenExp = time.Now().Add(time.Duration(out.ExpiresIn-60) * time.Second)
	return p.token, nil
}

func (p *PayPal) CreateOrder(ctx context.Context, total decimal.Decimal, description, correlationID string) (string, error) {
	if !p.Ready() {
		return "", ErrNotReady
	}
	tok, err := p.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body, _ := json.Marshal(map[string]any{
		"intent": p.Intent,
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": p.Currency,
				"value":         total.StringFixed(2),
			},
			"description": description,
			"custom_id":   correlationID,
		}},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal create order error: %s", res.Status)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (p *PayPal) Capture(ctx context.Context, orderID string) (*Capture, error) {
	tok, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v2/checkout/orders/%s/capture", p.BaseURL, orderID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusNotFound:
		return nil, fmt.Errorf("payment order not found")
	default:
		return nil, fmt.Errorf("paypal capture error: %s", res.Status)
	}

	var out struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					Amount struct {
						Value string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}

	c := &Capture{ID: out.ID, Status: out.Status, Method: "paypal"}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		amt, err := decimal.NewFromString(out.PurchaseUnits[0].Payments.Captures[0].Amount.Value)
		if err != nil {
			return nil, fmt.Errorf("paypal capture amount: %w", err)
		}
		c.Amount = amt
	}
	return c, nil
}
