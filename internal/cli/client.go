package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oremarket/internal/catalog"
	"oremarket/internal/game"
	"oremarket/internal/syncq"

	"github.com/google/uuid"
)

// APIError is a response the server actually produced.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsNetworkError reports whether err means the API was never reached, as
// opposed to the API rejecting the request.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewCommand builds a write with a fresh idempotency key.
func NewCommand(method, path string, body any) (syncq.Command, error) {
	cmd := syncq.Command{Method: method, Path: path, IdempotencyKey: uuid.NewString()}
	switch b := body.(type) {
	case nil:
	case []byte:
		cmd.Body = b
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return cmd, err
		}
		cmd.Body = raw
	}
	return cmd, nil
}

func (c *Client) Dashboard(ctx context.Context) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.getJSON(ctx, "/v1/dashboard", &out)
	return out, err
}

func (c *Client) Market(ctx context.Context) ([]game.ResourceView, error) {
	var out struct {
		Resources []game.ResourceView `json:"resources"`
	}
	err := c.getJSON(ctx, "/v1/market", &out)
	return out.Resources, err
}

func (c *Client) Resource(ctx context.Context, key string) (game.ResourceView, error) {
	var out game.ResourceView
	err := c.getJSON(ctx, "/v1/market/"+url.PathEscape(key), &out)
	return out, err
}

func (c *Client) Orders(ctx context.Context) ([]game.OrderView, error) {
	var out struct {
		Orders []game.OrderView `json:"orders"`
	}
	err := c.getJSON(ctx, "/v1/orders", &out)
	return out.Orders, err
}

func (c *Client) Investments(ctx context.Context) ([]game.InvestmentView, error) {
	var out struct {
		Investments []game.InvestmentView `json:"investments"`
	}
	err := c.getJSON(ctx, "/v1/investments", &out)
	return out.Investments, err
}

func (c *Client) Companies(ctx context.Context) ([]game.CompanyListing, error) {
	var out struct {
		Companies []game.CompanyListing `json:"companies"`
	}
	err := c.getJSON(ctx, "/v1/companies", &out)
	return out.Companies, err
}

func (c *Client) Leaderboard(ctx context.Context) (game.Leaderboard, error) {
	var out game.Leaderboard
	err := c.getJSON(ctx, "/v1/leaderboard", &out)
	return out, err
}

type SettingsView struct {
	Settings game.Settings `json:"settings"`
	Webhook  bool          `json:"webhook"`
}

func (c *Client) Settings(ctx context.Context) (SettingsView, error) {
	var out SettingsView
	err := c.getJSON(ctx, "/v1/settings", &out)
	return out, err
}

func (c *Client) ExportCatalog(ctx context.Context) ([]byte, error) {
	return c.Raw(ctx, http.MethodGet, "/v1/catalog/export", nil, "")
}

func (c *Client) ExportState(ctx context.Context) ([]byte, error) {
	return c.Raw(ctx, http.MethodGet, "/v1/state/export", nil, "")
}

// Write paths, shared with the CLI so failed writes can be queued verbatim.

func TickCommand() (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/market/tick", nil)
}

func NewOrderCommand(req game.OrderRequest) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/orders", req)
}

func OrderActionCommand(id, action string) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/orders/"+url.PathEscape(id)+"/"+action, nil)
}

func InvestCommand(req game.InvestRequest) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/investments", req)
}

func SellCommand(id string) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/investments/"+url.PathEscape(id)+"/sell", nil)
}

func CreateCompanyCommand(name string) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/companies", map[string]any{"name": name})
}

func JoinCompanyCommand(id string) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/companies/"+url.PathEscape(id)+"/join", nil)
}

func LeaveCompanyCommand() (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/companies/leave", nil)
}

func TransferCommand(id string, amount float64) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/companies/"+url.PathEscape(id)+"/transfer", map[string]any{"amount": amount})
}

func DissolveCommand(id string) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/companies/"+url.PathEscape(id)+"/dissolve", nil)
}

func SetHostOreCommand(key string, ore catalog.Ore) (syncq.Command, error) {
	return NewCommand(http.MethodPut, "/v1/host/ores/"+url.PathEscape(key), ore)
}

func RemoveHostOreCommand(key string) (syncq.Command, error) {
	return NewCommand(http.MethodDelete, "/v1/host/ores/"+url.PathEscape(key), nil)
}

func ImportStateCommand(raw []byte) (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/state/import", raw)
}

func ResetCommand() (syncq.Command, error) {
	return NewCommand(http.MethodPost, "/v1/state/reset", nil)
}

func SettingsCommand(patch game.SettingsPatch) (syncq.Command, error) {
	return NewCommand(http.MethodPut, "/v1/settings", patch)
}

func SetWebhookCommand(raw string) (syncq.Command, error) {
	return NewCommand(http.MethodPut, "/v1/webhook", map[string]any{"url": raw})
}

func ClearWebhookCommand() (syncq.Command, error) {
	return NewCommand(http.MethodDelete, "/v1/webhook", nil)
}

// Send executes a queued or fresh write. out may be nil.
func (c *Client) Send(ctx context.Context, cmd syncq.Command, out any) error {
	raw, err := c.Raw(ctx, cmd.Method, cmd.Path, cmd.Body, cmd.IdempotencyKey)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Replay sends queued commands in order and returns those still pending.
// Commands the API rejects are dropped and reported through onErr.
func (c *Client) Replay(ctx context.Context, queue []syncq.Command, onErr func(syncq.Command, error)) (int, []syncq.Command) {
	remaining := make([]syncq.Command, 0, len(queue))
	sent := 0
	for i, q := range queue {
		err := c.Send(ctx, q, nil)
		switch {
		case err == nil:
			sent++
		case IsNetworkError(err):
			if onErr != nil {
				onErr(q, err)
			}
			// Keep ordering: once the API is unreachable nothing later can run.
			return sent, append(remaining, queue[i:]...)
		default:
			if onErr != nil {
				onErr(q, err)
			}
		}
	}
	return sent, remaining
}

// Raw performs a request and returns the undecoded body.
func (c *Client) Raw(ctx context.Context, method, path string, body []byte, idem string) ([]byte, error) {
	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	raw, err := c.Raw(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func errorMessage(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
