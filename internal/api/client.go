package api

import (
	"context"
	"fmt"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"

	"github.com/diogo/mira/internal/config"
	"github.com/diogo/mira/internal/models"
)

// uploadTimeoutSeconds bounds a whole analysis round trip
const uploadTimeoutSeconds = 300

// NewHTTPClient creates the HTTP client used for uploads, with Chrome's TLS
// fingerprint so the service sees the same client the browser app would.
func NewHTTPClient() (tls_client.HttpClient, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(uploadTimeoutSeconds),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return httpClient, nil
}

// Client bundles the chat socket and the image analyzer for one endpoint
type Client struct {
	Socket   *SocketClient
	Analyzer *ImageAnalyzer
}

// ClientOption is a function that configures the client
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger    zerolog.Logger
	doer      Doer
	socketOps []SocketOption
}

// WithClientLogger sets the logger shared by the socket and analyzer
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPDoer replaces the HTTP client used for uploads
func WithHTTPDoer(d Doer) ClientOption {
	return func(o *clientOptions) {
		o.doer = d
	}
}

// WithSocketOptions passes extra options to the socket client
func WithSocketOptions(opts ...SocketOption) ClientOption {
	return func(o *clientOptions) {
		o.socketOps = append(o.socketOps, opts...)
	}
}

// NewClient creates a Client from configuration
func NewClient(cfg config.Config, opts ...ClientOption) (*Client, error) {
	o := clientOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.doer == nil {
		httpClient, err := NewHTTPClient()
		if err != nil {
			return nil, err
		}
		o.doer = httpClient
	}

	socketOpts := []SocketOption{
		WithReconnectDelay(cfg.ReconnectDelay()),
		WithMaxReconnects(cfg.MaxReconnectAttempts),
		WithLogger(o.logger.With().Str("component", "socket").Logger()),
	}
	socketOpts = append(socketOpts, o.socketOps...)

	return &Client{
		Socket: NewSocketClient(cfg.Endpoint, socketOpts...),
		Analyzer: NewImageAnalyzer(o.doer, cfg.UploadURL,
			WithAnalyzerLogger(o.logger.With().Str("component", "upload").Logger())),
	}, nil
}

// WaitOpen connects and blocks until the connection is open or fails
func (c *Client) WaitOpen(ctx context.Context) error {
	if err := c.Socket.Connect(ctx); err != nil {
		return err
	}
	for {
		select {
		case ev := <-c.Socket.Events():
			switch ev.Kind {
			case EventOpen:
				return nil
			case EventError:
				return ev.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Ask sends one prompt and waits for the next reply
func (c *Client) Ask(ctx context.Context, prompt string, timeout time.Duration) (models.Reply, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if !c.Socket.Sendable() {
		if err := c.WaitOpen(ctx); err != nil {
			return models.Reply{}, err
		}
	}

	if err := c.Socket.Send(prompt); err != nil {
		return models.Reply{}, err
	}

	for {
		select {
		case ev := <-c.Socket.Events():
			switch ev.Kind {
			case EventMessage:
				return ev.Reply, nil
			case EventError:
				return models.Reply{}, ev.Err
			}
		case <-ctx.Done():
			return models.Reply{}, fmt.Errorf("waiting for reply: %w", ctx.Err())
		}
	}
}

// Close shuts the socket down
func (c *Client) Close() error {
	return c.Socket.Close()
}
