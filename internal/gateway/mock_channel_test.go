package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockChannelCreateTransaction(t *testing.T) {
	ch := NewMockChannel("secret")

	txn, err := ch.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Reference:   "ref-1",
		OrderID:     "ord-1",
		AmountCents: 11000,
	})
	require.NoError(t, err)
	assert.Len(t, txn.PayCode, 12)
	assert.Equal(t, "https://pay.mock.invalid/t/ref-1", txn.PayURL)
	assert.Equal(t, "MOCKPAY|ref-1|11000", txn.QRPayload)
	assert.False(t, txn.ExpiresAt.IsZero())
}

func TestMockChannelCreateTransactionRequiresReference(t *testing.T) {
	ch := NewMockChannel("secret")

	_, err := ch.CreateTransaction(context.Background(), &CreateTransactionRequest{})
	assert.Error(t, err)
}

func signedCallback(t *testing.T, secret string, cb map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(cb)
	require.NoError(t, err)
	return payload, SignPayload([]byte(secret), payload)
}

func TestMockChannelVerifyCallback(t *testing.T) {
	ch := NewMockChannel("secret")
	payload, sig := signedCallback(t, "secret", map[string]any{
		"reference":    "ref-1",
		"status":       CallbackStatusPaid,
		"amount_cents": 11000,
	})

	notice, err := ch.VerifyCallback(payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "ref-1", notice.Reference)
	assert.Equal(t, CallbackStatusPaid, notice.Status)
	assert.Equal(t, uint32(11000), notice.AmountCents)
}

func TestMockChannelVerifyCallbackRejectsBadSignature(t *testing.T) {
	ch := NewMockChannel("secret")
	payload, _ := signedCallback(t, "secret", map[string]any{
		"reference": "ref-1",
		"status":    CallbackStatusPaid,
	})
	_, wrongSig := signedCallback(t, "other-secret", map[string]any{
		"reference": "ref-1",
		"status":    CallbackStatusPaid,
	})

	_, err := ch.VerifyCallback(payload, wrongSig)
	assert.Error(t, err)

	_, err = ch.VerifyCallback(payload, "not-hex")
	assert.Error(t, err)
}

func TestMockChannelVerifyCallbackRejectsUnknownStatus(t *testing.T) {
	ch := NewMockChannel("secret")
	payload, sig := signedCallback(t, "secret", map[string]any{
		"reference": "ref-1",
		"status":    "MAYBE",
	})

	_, err := ch.VerifyCallback(payload, sig)
	assert.Error(t, err)
}

func TestMockChannelVerifyCallbackRequiresReference(t *testing.T) {
	ch := NewMockChannel("secret")
	payload, sig := signedCallback(t, "secret", map[string]any{
		"status": CallbackStatusFailed,
	})

	_, err := ch.VerifyCallback(payload, sig)
	assert.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(NewMockChannel("secret"))

	ch, err := r.ByCode(ChannelMock)
	require.NoError(t, err)
	assert.Equal(t, ChannelMock, ch.Name())

	_, err = r.ByCode("telepathy")
	assert.Error(t, err)

	assert.Equal(t, []string{ChannelMock}, r.Codes())
}
