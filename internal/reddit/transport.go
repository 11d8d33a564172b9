package reddit

import (
	"context"
	"fmt"
	"io"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Response is the part of an HTTP response the client looks at.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs GET requests against the Reddit JSON API.
type Transport interface {
	Get(ctx context.Context, url, userAgent string) (*Response, error)
}

type tlsTransport struct {
	client tls_client.HttpClient
}

// NewTLSTransport returns a Transport backed by tls-client with a browser
// fingerprint. Reddit throttles the default Go TLS handshake much harder.
func NewTLSTransport(timeout time.Duration) (Transport, error) {
	secs := int(timeout.Seconds())
	if secs <= 0 {
		secs = 20
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(secs),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithCookieJar(tls_client.NewCookieJar()),
	}

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("create tls client: %w", err)
	}
	return &tlsTransport{client: client}, nil
}

func (t *tlsTransport) Get(ctx context.Context, url, userAgent string) (*Response, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header = fhttp.Header{
		"accept":     {"application/json"},
		"user-agent": {userAgent},
		fhttp.HeaderOrderKey: {
			"accept",
			"user-agent",
		},
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
