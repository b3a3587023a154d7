package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"order_id":"WC-1001","licenses":["KEY-1"]}`)
	sig := GenerateSignature(payload, "secret")

	assert.True(t, VerifySignature(payload, sig, "secret"))
}

func TestSignatureRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"order_id":"WC-1001"}`)
	sig := GenerateSignature(payload, "secret")

	assert.False(t, VerifySignature([]byte(`{"order_id":"WC-1002"}`), sig, "secret"))
	assert.False(t, VerifySignature(payload, sig, "wrong-secret"))
}
