// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *resty.Client
}

func newClient() *resty.Client {
	return resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  newClient(),
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	w.url = notifier.StringParam(cfg.Params, "url", w.url)
	switch h := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = h
	case map[string]any:
		w.headers = make(map[string]string, len(h))
		for k, v := range h {
			w.headers[k] = fmt.Sprint(v)
		}
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = newClient()
	}

	return nil
}

func (w *Webhook) Send(alert core.Alert) error {
	return w.post(w.alertToPayload(alert))
}

func (w *Webhook) SendBatch(alerts []core.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	payloads := make([]map[string]any, len(alerts))
	for i, a := range alerts {
		payloads[i] = w.alertToPayload(a)
	}

	return w.post(map[string]any{
		"type":   "batch",
		"count":  len(alerts),
		"alerts": payloads,
	})
}

func (w *Webhook) alertToPayload(alert core.Alert) map[string]any {
	p := map[string]any{
		"type":     "alert",
		"pair":     alert.Pair,
		"strategy": alert.Strategy,
		"kind":     alert.Kind,
		"message":  alert.Message,
		"at":       alert.At.UTC().Format(time.RFC3339),
	}
	if alert.Streak > 0 {
		p["streak"] = alert.Streak
	}
	if alert.Rule != "" {
		p["rule"] = alert.Rule
	}
	return p
}

func (w *Webhook) post(payload any) error {
	resp, err := w.client.R().
		SetHeader("Content-Type", "application/json").
		SetHeaders(w.headers).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode())
	}

	return nil
}
