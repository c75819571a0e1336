package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer computes and checks payment signatures: hex HMAC-SHA256 of
// "<gatewayOrderRef>|<paymentRef>" keyed with the gateway secret.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(gatewayOrderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(gatewayOrderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Signer) Verify(gatewayOrderRef, paymentRef, signature string) bool {
	if len(s.secret) == 0 || gatewayOrderRef == "" || paymentRef == "" || signature == "" {
		return false
	}
	expected := s.Sign(gatewayOrderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(signature))
}
