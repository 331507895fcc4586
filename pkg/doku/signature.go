package doku

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// signatureField is stripped from callback payloads before digesting, since
// the gateway signs everything except the signature itself.
const signatureField = "signature"

// Canonicalize produces a deterministic byte representation of a JSON
// payload: the value is decoded into generic maps and re-encoded, which
// serializes object keys in sorted order. Both sides of the signature
// exchange must canonicalize the same way or the digests diverge.
func Canonicalize(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("re-encode payload: %w", err)
	}
	return canonical, nil
}

// Digest returns the lowercase hex SHA-256 of the canonical body bytes.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// SignRequest computes the outbound request signature:
// HMAC-SHA256(secret, "<clientID>:<timestamp>:<requestID>:<digest>").
func SignRequest(secret, clientID, requestID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%s:%s", clientID, timestamp, requestID, Digest(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignCallback derives the signature the gateway attaches to callback
// payloads: HMAC-SHA256 of the hex digest of the canonical payload with the
// signature field removed.
func SignCallback(payload map[string]any, secret string) (string, error) {
	stripped := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == signatureField {
			continue
		}
		stripped[k] = v
	}
	canonical, err := Canonicalize(stripped)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Digest(canonical)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyCallback reports whether the raw callback body carries a valid
// signature. It never returns an error: malformed input, a missing signature
// field, or a digest mismatch all read as false. Comparison is constant-time.
func VerifyCallback(body []byte, secret string) bool {
	if len(body) == 0 || secret == "" {
		return false
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	provided, ok := payload[signatureField].(string)
	if !ok || provided == "" {
		return false
	}
	expected, err := SignCallback(payload, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
