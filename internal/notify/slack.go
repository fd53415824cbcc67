package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"civicpulse.app/sla/internal/model"
)

// SlackDispatcher posts notifications to a Slack incoming webhook.
type SlackDispatcher struct {
	webhookURL string
	channel    string
	client     *http.Client
}

func NewSlackDispatcher(webhookURL, channel string, client *http.Client) *SlackDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackDispatcher{webhookURL: webhookURL, channel: channel, client: client}
}

func (d *SlackDispatcher) Dispatch(ctx context.Context, n model.Notification) error {
	msg := &slack.WebhookMessage{
		Channel: d.channel,
		Text:    Summary(n),
		Blocks:  &slack.Blocks{BlockSet: Blocks(n)},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, d.webhookURL, d.client, msg); err != nil {
		return fmt.Errorf("posting %s notification to slack: %w", n.Kind, err)
	}
	return nil
}

// SlackOpsSink posts operator alerts to a separate ops webhook. Delivery
// failures are logged; the sink never fails the caller.
type SlackOpsSink struct {
	webhookURL string
	client     *http.Client
}

func NewSlackOpsSink(webhookURL string, client *http.Client) *SlackOpsSink {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &SlackOpsSink{webhookURL: webhookURL, client: client}
}

func (s *SlackOpsSink) Report(ctx context.Context, alert model.OperatorAlert) {
	msg := &slack.WebhookMessage{
		Text:   fmt.Sprintf("SLA monitor: %s: %s", alert.Kind, alert.Message),
		Blocks: &slack.Blocks{BlockSet: alertBlocks(alert)},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		slog.WarnContext(ctx, "posting operator alert to slack failed",
			"error", err,
			"alert", alert.Kind)
	}
}
