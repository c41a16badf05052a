package factory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mediaid-gateway/internal/catalog"
	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/provider"
	"mediaid-gateway/internal/provider/geminirest"
	"mediaid-gateway/internal/provider/geminisdk"
	"mediaid-gateway/internal/provider/groqrest"
	"mediaid-gateway/internal/provider/groqsdk"
	"mediaid-gateway/internal/provider/local"
)

const (
	defaultHTTPTimeout     = 60 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredProviders constructs providers from configuration and stores them in the registry.
// drugs backs the local style and may be nil when no local provider is configured.
func RegisterConfiguredProviders(ctx context.Context, cfg config.Config, registry *provider.Registry, drugs catalog.Catalog) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	for _, pc := range cfg.Providers {
		p, err := build(ctx, pc, drugs)
		if err != nil {
			return fmt.Errorf("initialise %s provider: %w", pc.Name, err)
		}
		if err := registry.RegisterProvider(ctx, p, pc.Aliases); err != nil {
			return fmt.Errorf("register %s provider: %w", pc.Name, err)
		}
		zap.L().Info("provider registered",
			zap.String("provider", pc.Name),
			zap.String("style", pc.Style),
			zap.Strings("models", pc.Models),
		)
	}

	return nil
}

func build(ctx context.Context, pc config.ProviderConfig, drugs catalog.Catalog) (provider.Provider, error) {
	if pc.Style == config.StyleLocal {
		return local.New(pc.Name, pc, drugs)
	}

	timeout := pc.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := newHTTPClient(timeout)

	switch pc.Style {
	case config.StyleGroqSDK:
		return groqsdk.New(pc.Name, pc, client)
	case config.StyleGroqREST:
		return groqrest.New(pc.Name, pc, client)
	case config.StyleGeminiREST:
		return geminirest.New(pc.Name, pc, client)
	case config.StyleGeminiSDK:
		return geminisdk.New(ctx, pc.Name, pc, client)
	default:
		return nil, fmt.Errorf("unsupported provider style %q", pc.Style)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
