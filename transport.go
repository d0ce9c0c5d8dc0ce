package authcore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxTokenResponseBytes bounds how much of a provider response is read.
const maxTokenResponseBytes = 1 << 20

// TransportResponse is the raw result of a form POST.
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs form-encoded POSTs to an OAuth provider. Timeouts,
// retries and TLS are the implementation's concern; the context passed in is the
// caller's.
type Transport interface {
	PostForm(ctx context.Context, endpoint string, header http.Header, form url.Values) (*TransportResponse, error)
}

// HTTPTransport is the default Transport over an *http.Client.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport wraps client. A nil client uses http.DefaultClient.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) PostForm(ctx context.Context, endpoint string, header http.Header, form url.Values) (*TransportResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &TransportResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
