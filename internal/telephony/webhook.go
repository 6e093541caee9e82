package telephony

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"voice-orchestrator/internal/calls"
)

// SignatureHeader carries "sha256=<hex(HMAC-SHA256(secret, body))>".
const SignatureHeader = "X-Webhook-Signature"

const signaturePrefix = "sha256="

// callNotification is the wire shape of an inbound call notification.
type callNotification struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	CallID   string            `json:"callId"`
	TrunkID  string            `json:"trunkId"`
	Metadata map[string]string `json:"metadata"`
}

// ParseCallRequest decodes and validates a notification body. Any problem
// wraps calls.ErrValidation.
func ParseCallRequest(body []byte) (calls.CallRequest, error) {
	var n callNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return calls.CallRequest{}, fmt.Errorf("%w: %v", calls.ErrValidation, err)
	}
	from, to := normalizePhone(n.From), normalizePhone(n.To)
	if from == "" {
		return calls.CallRequest{}, fmt.Errorf("%w: from is required", calls.ErrValidation)
	}
	if to == "" {
		return calls.CallRequest{}, fmt.Errorf("%w: to is required", calls.ErrValidation)
	}
	return calls.CallRequest{
		From:     from,
		To:       to,
		CallID:   strings.TrimSpace(n.CallID),
		TrunkID:  strings.TrimSpace(n.TrunkID),
		Metadata: n.Metadata,
	}, nil
}

func normalizePhone(s string) string {
	return strings.TrimSpace(s)
}

// VerifySignature checks header against body. An empty secret disables
// the check. Failures wrap calls.ErrAuthentication.
func VerifySignature(body []byte, header, secret string) error {
	if secret == "" {
		return nil
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return fmt.Errorf("%w: missing %s", calls.ErrAuthentication, SignatureHeader)
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return fmt.Errorf("%w: unsupported scheme", calls.ErrAuthentication)
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return fmt.Errorf("%w: malformed signature", calls.ErrAuthentication)
	}
	if !hmac.Equal(got, mac(body, secret)) {
		return fmt.Errorf("%w: signature mismatch", calls.ErrAuthentication)
	}
	return nil
}

// Sign returns the header value a sender would attach to body.
func Sign(body []byte, secret string) string {
	return signaturePrefix + hex.EncodeToString(mac(body, secret))
}

func mac(body []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return h.Sum(nil)
}
