// Package httpclient is the live ERP gateway adapter: it POSTs the
// canonical envelope to a configured ERP endpoint over plain net/http,
// grounded on the teacher's tests/helpers.HTTPClient base-URL/timeout/
// JSON-marshal wrapper, adapted from a test fixture into a real adapter.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Lucasschwertz/procurement-core/internal/adapters/erp"
	"github.com/Lucasschwertz/procurement-core/internal/domain/erpenvelope"
	"github.com/Lucasschwertz/procurement-core/pkg/apperr"
	"github.com/Lucasschwertz/procurement-core/pkg/constant"
)

// Gateway talks to a live ERP HTTP endpoint.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ erp.Gateway = (*Gateway)(nil)

// New builds a Gateway pointed at baseURL, authenticating every request
// with apiKey via an Authorization header.
func New(baseURL, apiKey string, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type pushResponse struct {
	ExternalID string    `json:"external_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// PushPurchaseOrder POSTs the envelope to {baseURL}/purchase-orders,
// classifying the response per spec's Open Question (a): HTTP 408 and
// 429 are transient (the outbox worker should retry), every other
// non-2xx is definitive (dead-letter immediately).
func (g *Gateway) PushPurchaseOrder(ctx context.Context, envelope erpenvelope.Envelope) (erp.PushResult, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return erp.PushResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/purchase-orders", bytes.NewReader(body))
	if err != nil {
		return erp.PushResult{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return erp.PushResult{}, apperr.IntegrationError{
			EntityType: "PurchaseOrder",
			Code:       constant.ErrErpIntegration.Error(),
			Title:      "ERP Unreachable",
			Message:    err.Error(),
			Definitive: false,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return erp.PushResult{}, apperr.IntegrationError{
			EntityType: "PurchaseOrder",
			Code:       constant.ErrErpIntegration.Error(),
			Title:      "ERP Rejected Purchase Order",
			Message:    fmt.Sprintf("erp returned status %d: %s", resp.StatusCode, string(respBody)),
			Definitive: resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests,
		}
	}

	var parsed pushResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return erp.PushResult{}, apperr.IntegrationError{
			EntityType: "PurchaseOrder",
			Code:       constant.ErrErpIntegration.Error(),
			Title:      "ERP Response Invalid",
			Message:    "could not decode erp response body",
			Definitive: true,
			Err:        err,
		}
	}

	return erp.PushResult{ExternalID: parsed.ExternalID, AcceptedAt: parsed.AcceptedAt}, nil
}

type pullResponse struct {
	Records    []pullRecord `json:"records"`
	NextCursor string       `json:"next_cursor"`
}

type pullRecord struct {
	ExternalID string          `json:"external_id"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Data       json.RawMessage `json:"data"`
}

// Pull fetches one incremental batch for scope from
// {baseURL}/{scope}?since=...&since_id=...
func (g *Gateway) Pull(ctx context.Context, scope string, since time.Time, sinceID string) ([]erp.PulledRecord, string, error) {
	url := fmt.Sprintf("%s/%s?since=%s&since_id=%s", g.baseURL, scope, since.Format(time.RFC3339), sinceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sinceID, err
	}

	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, sinceID, apperr.IntegrationError{
			EntityType: scope,
			Code:       constant.ErrErpIntegration.Error(),
			Title:      "ERP Unreachable",
			Message:    err.Error(),
			Definitive: false,
			Err:        err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, sinceID, apperr.IntegrationError{
			EntityType: scope,
			Code:       constant.ErrErpIntegration.Error(),
			Title:      "ERP Pull Failed",
			Message:    fmt.Sprintf("erp returned status %d", resp.StatusCode),
			Definitive: resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests,
		}
	}

	var parsed pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, sinceID, err
	}

	out := make([]erp.PulledRecord, 0, len(parsed.Records))
	for _, r := range parsed.Records {
		out = append(out, erp.PulledRecord{ExternalID: r.ExternalID, UpdatedAt: r.UpdatedAt, Raw: r.Data})
	}

	return out, parsed.NextCursor, nil
}
