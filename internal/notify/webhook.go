package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"oremarket/internal/game"
)

const botName = "MiningBot"

type payload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Webhook posts game events to a user-supplied URL. Discord webhook URLs go
// through discordgo; anything else receives a plain JSON POST. Delivery is
// best effort: failures are logged and dropped.
type Webhook struct {
	client  *http.Client
	discord *discordgo.Session
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewWebhook(logger *slog.Logger, client *http.Client) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	session, err := discordgo.New("")
	if err != nil {
		logger.Warn("discord client unavailable, using plain webhooks", "err", err)
		session = nil
	} else {
		session.Client = client
	}
	return &Webhook{
		client:  client,
		discord: session,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		log:     logger,
	}
}

func (w *Webhook) Notify(ctx context.Context, target string, ev game.Event) {
	target = strings.TrimSpace(target)
	if target == "" {
		return
	}
	if err := w.limiter.Wait(ctx); err != nil {
		w.log.Warn("webhook dropped", "event", ev.Kind, "err", err)
		return
	}
	content := Content(ev)
	var err error
	if id, token, ok := discordWebhook(target); ok && w.discord != nil {
		_, err = w.discord.WebhookExecute(id, token, false, &discordgo.WebhookParams{
			Username: botName,
			Content:  content,
		}, discordgo.WithContext(ctx))
	} else {
		err = w.post(ctx, target, payload{Username: botName, Content: content})
	}
	if err != nil {
		w.log.Warn("webhook delivery failed", "event", ev.Kind, "err", err)
		return
	}
	w.log.Debug("webhook delivered", "event", ev.Kind)
}

func (w *Webhook) post(ctx context.Context, target string, body payload) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// discordWebhook extracts the id and token from a Discord webhook URL.
func discordWebhook(raw string) (id, token string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}
	host := strings.TrimPrefix(u.Hostname(), "ptb.")
	host = strings.TrimPrefix(host, "canary.")
	if host != "discord.com" && host != "discordapp.com" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// api/webhooks/{id}/{token} or api/v10/webhooks/{id}/{token}
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], true
		}
	}
	return "", "", false
}

// Content renders the one-line message for an event.
func Content(ev game.Event) string {
	switch ev.Kind {
	case game.EventLevelUp:
		return fmt.Sprintf("🏆 **%s** reached Level **%d**!", ev.Player, ev.Level)
	case game.EventOrderComplete:
		return fmt.Sprintf("✅ **%s** completed %dx %s (Tier x%g) - Payout: $%s", ev.Player, ev.Qty, ev.Ore, ev.Tier, money(ev.Payout))
	case game.EventBulkComplete:
		return fmt.Sprintf("💼 **%s** completed bulk %dx %s - Payout: $%s", ev.Company, ev.Qty, ev.Ore, money(ev.Payout))
	case game.EventCompanyCreated:
		return fmt.Sprintf("🏢 New company: **%s** (created by %s)", ev.Company, ev.Player)
	case game.EventCompanyDestroyed:
		return fmt.Sprintf("💥 **%s** has been dissolved", ev.Company)
	case game.EventInvestment:
		return fmt.Sprintf("📈 **%s** invested $%s in **%s** - spike triggered", ev.Player, money(ev.Amount), ev.Ore)
	case game.EventTransfer:
		return fmt.Sprintf("🏦 **%s** transferred $%s to **%s**", ev.Player, money(ev.Amount), ev.Company)
	case game.EventPFMilestone:
		return fmt.Sprintf("💠 **%s** reached Prosperity Factor **%.2f**!", ev.Company, ev.PF)
	case game.EventNetWorthMilestone:
		return fmt.Sprintf("💰 **%s** passed a net worth of $%s", ev.Player, money(ev.NetWorth))
	default:
		raw, _ := json.Marshal(ev)
		return fmt.Sprintf("🔔 Event: %s - %s", ev.Kind, raw)
	}
}

func money(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
