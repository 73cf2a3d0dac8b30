package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lorenzotomasdiez/werewolf/internal/game"
)

const maxRetries = 3

// ErrMalformed is returned when an agent answers with a body that does not
// follow the contract.
var ErrMalformed = errors.New("agentapi: malformed response")

// Client talks to a remote player agent. It implements game.Agent.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	backoffFunc func(attempt int) time.Duration
}

var _ game.Agent = (*Client)(nil)

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
}

// NewClient creates a client for the agent listening at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(baseURL, "/"),
		backoffFunc: defaultBackoff,
	}
}

// Endpoint returns the agent base URL.
func (c *Client) Endpoint() string { return c.baseURL }

// NewGame sends the setup payload. Transient failures are retried since the
// call is idempotent.
func (c *Client) NewGame(ctx context.Context, info game.SetupInfo) (bool, error) {
	werewolves := info.Werewolves
	if werewolves == nil {
		werewolves = []string{}
	}
	body, err := json.Marshal(NewGameRequest{
		Role:         info.Role.String(),
		PlayerName:   info.PlayerName,
		PlayersNames: info.PlayerNames,
		Werewolves:   werewolves,
	})
	if err != nil {
		return false, fmt.Errorf("agentapi: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		return c.post(ctx, "/new_game", body)
	})
	if err != nil {
		return false, fmt.Errorf("agentapi: new_game: %w", err)
	}
	defer resp.Body.Close()

	var out NewGameResponse
	if err := decode(resp.Body, &out, newGameKeys); err != nil {
		return false, fmt.Errorf("agentapi: new_game: %w", err)
	}
	return out.Ack, nil
}

// Speak hands the floor to the agent and returns its speech.
func (c *Client) Speak(ctx context.Context) (string, error) {
	var out SpeakResponse
	if err := c.call(ctx, "/speak", nil, &out, speakKeys); err != nil {
		return "", fmt.Errorf("agentapi: speak: %w", err)
	}
	return out.Speech, nil
}

// Notify forwards a narration message and returns the agent's intent.
func (c *Client) Notify(ctx context.Context, message string) (*game.Intent, error) {
	body, err := json.Marshal(NotifyRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("agentapi: %w", err)
	}
	var out NotifyResponse
	if err := c.call(ctx, "/notify", body, &out, notifyKeys); err != nil {
		return nil, fmt.Errorf("agentapi: notify: %w", err)
	}
	in := &game.Intent{WantToSpeak: out.WantToSpeak, WantToInterrupt: out.WantToInterrupt}
	if out.VoteFor != nil {
		in.VoteFor = *out.VoteFor
	}
	return in, nil
}

func (c *Client) call(ctx context.Context, path string, body []byte, out any, required []string) error {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return decode(resp.Body, out, required)
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	if body == nil {
		body = []byte("{}")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// decode checks that every required key is present before filling out.
func decode(r io.Reader, out any, required []string) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return fmt.Errorf("%w: missing %q", ErrMalformed, k)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func isRetryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func (c *Client) doWithRetry(ctx context.Context, do func(context.Context) (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffFunc(attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := do(ctx)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		if !isRetryable(resp.StatusCode) {
			return nil, lastErr
		}

		// Retry-After is honored on top of the backoff, unless backoff is disabled.
		if resp.StatusCode == http.StatusTooManyRequests && c.backoffFunc(0) > 0 {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(secs) * time.Second):
				}
			}
		}
	}
	return nil, lastErr
}
