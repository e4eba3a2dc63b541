package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// MockChannel is a deterministic stand-in provider used in dev and
// test deployments. It synthesises a pay code and QR payload locally
// and authenticates callbacks with an HMAC-SHA256 shared secret, the
// same scheme the engine expects from virtual-account providers.
type MockChannel struct {
	secret []byte
}

// NewMockChannel builds a mock channel with the given shared secret.
func NewMockChannel(secret string) *MockChannel {
	return &MockChannel{secret: []byte(secret)}
}

var _ Channel = (*MockChannel)(nil)

// Name returns the channel code.
func (m *MockChannel) Name() string { return ChannelMock }

// SignatureHeader names the callback signature header.
func (m *MockChannel) SignatureHeader() string { return "X-Callback-Signature" }

// CreateTransaction synthesises provider metadata without any network
// call. The pay code is a 12-digit number and the QR payload embeds
// the reference so scanner tooling can be pointed at it directly.
func (m *MockChannel) CreateTransaction(_ context.Context, req *CreateTransactionRequest) (*ProviderTransaction, error) {
	if req == nil || req.Reference == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}
	code := fmt.Sprintf("%012d", rand.Int63n(1_000_000_000_000))
	return &ProviderTransaction{
		ProviderRef: "mock-" + req.Reference,
		PayCode:     code,
		PayURL:      "https://pay.mock.invalid/t/" + req.Reference,
		QRPayload:   fmt.Sprintf("MOCKPAY|%s|%d", req.Reference, req.AmountCents),
		ExpiresAt:   time.Now().UTC().Add(30 * time.Minute),
	}, nil
}

// mockCallback is the wire shape of the mock provider's callback body.
type mockCallback struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	AmountCents uint32 `json:"amount_cents"`
}

// VerifyCallback checks the HMAC-SHA256 signature over the raw body
// and decodes the JSON payload. Unknown statuses are rejected so a
// misbehaving provider cannot push the engine into an undefined
// transition.
func (m *MockChannel) VerifyCallback(payload []byte, signature string) (*CallbackNotice, error) {
	want := SignPayload(m.secret, payload)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("malformed callback signature")
	}
	wantRaw, _ := hex.DecodeString(want)
	if !hmac.Equal(wantRaw, got) {
		return nil, fmt.Errorf("callback signature mismatch")
	}
	var cb mockCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	switch cb.Status {
	case CallbackStatusPaid, CallbackStatusFailed, CallbackStatusExpired:
	default:
		return nil, fmt.Errorf("unknown callback status: %s", cb.Status)
	}
	if cb.Reference == "" {
		return nil, fmt.Errorf("callback reference is required")
	}
	return &CallbackNotice{
		Reference:   cb.Reference,
		Status:      cb.Status,
		AmountCents: cb.AmountCents,
	}, nil
}

// SignPayload computes the hex HMAC-SHA256 of payload under secret.
// Exposed so tests and provider simulators can produce valid
// callbacks.
func SignPayload(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
