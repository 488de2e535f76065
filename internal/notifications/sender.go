package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
)

// OneSignalSender sends push notifications through the OneSignal REST API.
type OneSignalSender struct {
	url         string
	appID       string
	apiKey      string
	accentColor string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewOneSignalSender creates a sender. Returns nil if appID or apiKey is
// empty (push disabled).
func NewOneSignalSender(url, appID, apiKey, accentColor string, logger *slog.Logger) *OneSignalSender {
	if appID == "" || apiKey == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OneSignalSender{
		url:         url,
		appID:       appID,
		apiKey:      apiKey,
		accentColor: accentColor,
		httpClient:  &http.Client{Timeout: providerTimeout},
		logger:      logger,
	}
}

// oneSignalRequest is the create-notification body.
type oneSignalRequest struct {
	AppID              string            `json:"app_id"`
	ExternalID         string            `json:"external_id,omitempty"`
	Filters            []Filter          `json:"filters"`
	Headings           map[string]string `json:"headings"`
	Contents           map[string]string `json:"contents"`
	Data               map[string]string `json:"data,omitempty"`
	IOSSound           string            `json:"ios_sound"`
	IOSBadgeType       string            `json:"ios_badgeType"`
	IOSBadgeCount      int               `json:"ios_badgeCount"`
	AndroidChannelID   string            `json:"android_channel_id,omitempty"`
	AndroidAccentColor string            `json:"android_accent_color,omitempty"`
	Priority           int               `json:"priority"`
	TTL                int               `json:"ttl"`
}

type oneSignalResponse struct {
	ID         string          `json:"id"`
	Recipients int             `json:"recipients"`
	Errors     json.RawMessage `json:"errors"`
}

// ProviderError is a failed provider call: a non-2xx status and/or a
// provider-reported error list.
type ProviderError struct {
	StatusCode int
	Errors     []string
}

func (e *ProviderError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("push provider returned %d", e.StatusCode)
	}
	return fmt.Sprintf("push provider returned %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

// Send posts one notification. A response carrying an errors list is a
// failure even with a 2xx status.
func (s *OneSignalSender) Send(ctx context.Context, p Push) error {
	if s == nil {
		return nil // no-op when not configured
	}

	body := oneSignalRequest{
		AppID:              s.appID,
		ExternalID:         p.ExternalID,
		Filters:            p.Filters,
		Headings:           map[string]string{"en": p.Heading},
		Contents:           map[string]string{"en": p.Content},
		Data:               p.Data,
		IOSSound:           "default",
		IOSBadgeType:       "Increase",
		IOSBadgeCount:      1,
		AndroidChannelID:   p.ChannelID,
		AndroidAccentColor: s.accentColor,
		Priority:           p.Priority,
		TTL:                p.TTL,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read push response: %w", err)
	}

	var out oneSignalResponse
	decodeErr := json.Unmarshal(raw, &out)
	providerErrs := decodeErrors(out.Errors)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(providerErrs) == 0 && len(raw) > 0 {
			providerErrs = []string{strings.TrimSpace(string(raw[:min(len(raw), 200)]))}
		}
		return &ProviderError{StatusCode: resp.StatusCode, Errors: providerErrs}
	}
	if len(providerErrs) > 0 {
		return &ProviderError{StatusCode: resp.StatusCode, Errors: providerErrs}
	}
	if decodeErr != nil {
		s.logger.Warn("undecodable push response treated as success",
			"status", resp.StatusCode, "error", decodeErr)
	}

	s.logger.Debug("push sent", "id", out.ID, "recipients", out.Recipients)
	return nil
}

// decodeErrors normalizes the provider's errors field, which is either a
// list of strings or an object keyed by error kind.
func decodeErrors(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var list []interface{}
	if err := json.Unmarshal(trimmed, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		out := make([]string, 0, len(obj))
		for k, v := range obj {
			out = append(out, fmt.Sprintf("%s: %v", k, v))
		}
		sort.Strings(out)
		return out
	}
	return []string{string(trimmed)}
}
