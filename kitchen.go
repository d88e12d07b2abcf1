package ovenflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zoobzio/clockz"
)

// KitchenPath is the order-acceptance resource on the mock backend.
const KitchenPath = "/api/order-response"

// KitchenSubmitter obtains an acceptance receipt for an order. This is the
// one collaborator that signals failure through a returned error, because
// every call site wraps it in RetryWithBackoff.
type KitchenSubmitter interface {
	Submit(ctx context.Context, order OrderRecord) (KitchenReceipt, error)
}

type kitchenRequest struct {
	OrderID   string  `json:"orderId"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

type kitchenReceiptWire struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	KitchenReference     string `json:"kitchenReference"`
	EstimatedPrepMinutes int    `json:"estimatedPrepMinutes"`
}

// KitchenClient talks to the mock kitchen endpoint: POST the order summary,
// fall back to GET of the same resource when the POST transport fails or
// responds unsuccessfully, then strictly validate the receipt payload. An
// optional simulated latency stands in for network distance.
type KitchenClient struct {
	baseURL    string
	httpClient *http.Client
	clock      clockz.Clock
	latency    time.Duration
}

// NewKitchenClient creates a client for the kitchen backend at baseURL.
func NewKitchenClient(baseURL string) *KitchenClient {
	return &KitchenClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *KitchenClient) WithHTTPClient(client *http.Client) *KitchenClient {
	c.httpClient = client
	return c
}

// WithClock sets a custom clock for latency simulation and receipt
// timestamps, for testing.
func (c *KitchenClient) WithClock(clock clockz.Clock) *KitchenClient {
	c.clock = clock
	return c
}

// WithSimulatedLatency adds an artificial delay before every submission.
func (c *KitchenClient) WithSimulatedLatency(d time.Duration) *KitchenClient {
	c.latency = d
	return c
}

// Submit implements KitchenSubmitter. Any transport failure, non-2xx
// response, or schema-invalid payload returns a descriptive error.
func (c *KitchenClient) Submit(ctx context.Context, order OrderRecord) (KitchenReceipt, error) {
	clock := c.getClock()

	if c.latency > 0 {
		select {
		case <-clock.After(c.latency):
		case <-ctx.Done():
			return KitchenReceipt{}, fmt.Errorf("kitchen submit canceled: %w", ctx.Err())
		}
	}

	payload := kitchenRequest{
		OrderID:   order.ID,
		Total:     order.Total,
		ItemCount: len(order.Items),
	}

	resp, postErr := c.post(ctx, payload)
	if postErr != nil {
		// Primary transport failed outright; try the read-only fallback.
		var getErr error
		resp, getErr = c.get(ctx)
		if getErr != nil {
			return KitchenReceipt{}, fmt.Errorf("kitchen unreachable: post: %v; get fallback: %w", postErr, getErr)
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := resp.StatusCode
		_ = resp.Body.Close() //nolint:errcheck

		fallback, getErr := c.get(ctx)
		if getErr != nil {
			return KitchenReceipt{}, fmt.Errorf("kitchen rejected order %s: post status %d; get fallback: %w", order.ID, status, getErr)
		}
		defer fallback.Body.Close() //nolint:errcheck
		if fallback.StatusCode < 200 || fallback.StatusCode > 299 {
			return KitchenReceipt{}, fmt.Errorf("kitchen rejected order %s: post status %d, get status %d", order.ID, status, fallback.StatusCode)
		}
		resp = fallback
	}

	var wire kitchenReceiptWire
	dec := json.NewDecoder(resp.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return KitchenReceipt{}, fmt.Errorf("kitchen returned invalid payload for order %s: %w", order.ID, err)
	}
	if err := validateReceipt(wire); err != nil {
		return KitchenReceipt{}, fmt.Errorf("kitchen receipt for order %s failed validation: %w", order.ID, err)
	}

	return KitchenReceipt{
		Status:               wire.Status,
		Message:              wire.Message,
		KitchenReference:     wire.KitchenReference,
		EstimatedPrepMinutes: wire.EstimatedPrepMinutes,
		ReceivedAt:           clock.Now(),
	}, nil
}

func (c *KitchenClient) post(ctx context.Context, payload kitchenRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode kitchen request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+KitchenPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *KitchenClient) get(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+KitchenPath, nil)
	if err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

func validateReceipt(wire kitchenReceiptWire) error {
	switch wire.Status {
	case "accepted", "queued":
	case "":
		return fmt.Errorf("missing status")
	default:
		return fmt.Errorf("unexpected status %q", wire.Status)
	}
	if wire.KitchenReference == "" {
		return fmt.Errorf("missing kitchenReference")
	}
	if wire.EstimatedPrepMinutes < 0 || wire.EstimatedPrepMinutes > 240 {
		return fmt.Errorf("estimatedPrepMinutes %d out of range", wire.EstimatedPrepMinutes)
	}
	return nil
}

func (c *KitchenClient) getClock() clockz.Clock {
	if c.clock == nil {
		return clockz.RealClock
	}
	return c.clock
}
