package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 10 * time.Second

type sendPayload struct {
	TenantID    string `json:"tenantId"`
	From        string `json:"from"`
	To          string `json:"to"`
	TemplateRef string `json:"templateRef"`
	Body        string `json:"body,omitempty"`
}

type sendResponseBody struct {
	MessageID string `json:"messageId"`
}

// HTTPProvider sends messages to an HTTP messaging gateway.
type HTTPProvider struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPProvider(endpoint string, timeout time.Duration) (*HTTPProvider, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewHTTPProviderWithClient(endpoint, client)
}

func NewHTTPProviderWithClient(endpoint string, client *resty.Client) (*HTTPProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("provider endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid provider endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *HTTPProvider) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(req.To) == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(req.TemplateRef) == "" {
		return nil, fmt.Errorf("template ref is required")
	}

	payload := sendPayload{
		TenantID:    req.TenantID,
		From:        req.From,
		To:          req.To,
		TemplateRef: req.TemplateRef,
		Body:        req.Body,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  providerMessageID(response),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// providerMessageID prefers the message id from the response body, falling
// back to request-id headers for gateways that omit one.
func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var body sendResponseBody
	if err := json.Unmarshal(response.Body(), &body); err == nil {
		if id := strings.TrimSpace(body.MessageID); id != "" {
			return id
		}
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
