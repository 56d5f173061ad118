// Package notify delivers push notifications for maintenance outcomes.
// Delivery failures are logged and counted by callers; they never abort
// a run.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/routermedic/routermedic/internal/outcome"
)

// Priorities follow the push API contract: emergency (2) requires retry
// and expire parameters.
const (
	PriorityQuiet     = -1
	PriorityNormal    = 0
	PriorityHigh      = 1
	PriorityEmergency = 2

	emergencyRetrySeconds  = 60
	emergencyExpireSeconds = 3600
)

// Message is one notification to push.
type Message struct {
	Title    string
	Body     string
	Priority int
	Sound    string
}

// PriorityFor maps an outcome kind to a push priority
// (Fixed < Found < Failed < Critical).
func PriorityFor(k outcome.Kind) int {
	switch k {
	case outcome.Fixed:
		return PriorityQuiet
	case outcome.Found:
		return PriorityNormal
	case outcome.Failed:
		return PriorityHigh
	case outcome.Critical:
		return PriorityEmergency
	default:
		return PriorityQuiet
	}
}

// SoundFor maps an outcome kind to a push sound.
func SoundFor(k outcome.Kind) string {
	switch k {
	case outcome.Critical:
		return "siren"
	case outcome.Failed:
		return "falling"
	default:
		return "pushover"
	}
}

// Client posts messages to a Pushover-compatible HTTP API. Success is
// determined by the status field of the JSON response body, not the HTTP
// status alone. A rate limiter paces requests so a burst of outcomes in
// one run is not dropped server-side.
type Client struct {
	api     string
	token   string
	user    string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client with a hard request timeout and a 1 req/sec
// pacing limiter with a small burst.
func NewClient(api, token, user string) *Client {
	return &Client{
		api:     api,
		token:   token,
		user:    user,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
	}
}

type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Push sends one message, blocking on the pacing limiter first.
func (c *Client) Push(ctx context.Context, m Message) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	form := url.Values{
		"token":    {c.token},
		"user":     {c.user},
		"title":    {m.Title},
		"message":  {m.Body},
		"priority": {strconv.Itoa(m.Priority)},
	}
	if m.Sound != "" {
		form.Set("sound", m.Sound)
	}
	if m.Priority >= PriorityEmergency {
		form.Set("retry", strconv.Itoa(emergencyRetrySeconds))
		form.Set("expire", strconv.Itoa(emergencyExpireSeconds))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting notification: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding push response (HTTP %d): %w", resp.StatusCode, err)
	}
	if body.Status != 1 {
		return fmt.Errorf("push rejected (HTTP %d): %s", resp.StatusCode, strings.Join(body.Errors, "; "))
	}
	return nil
}
