package gateway

import (
	"fmt"
	"strings"
)

// Channel codes accepted by the factory.
const (
	ChannelMock   = "mock"
	ChannelStripe = "stripe"
)

// Config holds the credentials the factory needs to build channels.
type Config struct {
	MockSecret          string // shared secret signing mock callbacks
	StripeSecretKey     string // stripe API key
	StripeWebhookSecret string // stripe webhook signing secret
	Currency            string // ISO currency code, e.g. "usd"
}

// Registry holds the channels available to the orchestrator, keyed by
// channel code.
type Registry struct {
	channels map[string]Channel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds a channel under its own name.
func (r *Registry) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

// ByCode returns the channel for a code, or an error for unknown codes.
func (r *Registry) ByCode(code string) (Channel, error) {
	ch, ok := r.channels[strings.ToLower(code)]
	if !ok {
		return nil, fmt.Errorf("unknown payment channel: %s", code)
	}
	return ch, nil
}

// Codes lists the registered channel codes.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.channels))
	for code := range r.channels {
		out = append(out, code)
	}
	return out
}

// NewChannel builds one channel variant by code.
func NewChannel(code string, cfg *Config) (Channel, error) {
	switch strings.ToLower(code) {
	case ChannelMock, "":
		if cfg == nil || cfg.MockSecret == "" {
			return nil, fmt.Errorf("mock channel secret is required")
		}
		return NewMockChannel(cfg.MockSecret), nil
	case ChannelStripe:
		if cfg == nil || cfg.StripeSecretKey == "" {
			return nil, fmt.Errorf("stripe secret key is required")
		}
		return NewStripeChannel(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Currency), nil
	default:
		return nil, fmt.Errorf("unsupported payment channel: %s", code)
	}
}
