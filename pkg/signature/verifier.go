// Package signature verifies payment provider webhook signatures.
//
// The provider does not pin down which bytes it signs or how it encodes the MAC, so a request is
// accepted when the header matches HMAC-SHA256 over any of the candidate messages, in hex or base64.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// TimestampSeparators are tried between the timestamp header and the body.
var TimestampSeparators = []string{"", ".", ":"}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify reports whether signature matches one of the candidates for body and timestamp.
// An empty secret or signature never verifies.
func (v *Verifier) Verify(body []byte, signature, timestamp string) bool {
	provided := normalize(signature)
	if len(v.secret) == 0 || provided == "" {
		return false
	}
	providedLower := strings.ToLower(provided)

	matched := false
	for _, msg := range Candidates(body, timestamp) {
		mac := v.mac(msg)
		// no early return: every candidate is compared
		if hmac.Equal([]byte(hex.EncodeToString(mac)), []byte(providedLower)) {
			matched = true
		}
		if hmac.Equal([]byte(base64.StdEncoding.EncodeToString(mac)), []byte(provided)) {
			matched = true
		}
	}
	return matched
}

func (v *Verifier) mac(msg []byte) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write(msg)
	return h.Sum(nil)
}

// Candidates lists the distinct messages a signature may have been computed over.
func Candidates(body []byte, timestamp string) [][]byte {
	out := [][]byte{body}
	add := func(msg []byte) {
		for _, existing := range out {
			if bytes.Equal(existing, msg) {
				return
			}
		}
		out = append(out, msg)
	}

	decoded := strings.ToValidUTF8(string(body), "�")
	add([]byte(decoded))

	timestamp = strings.TrimSpace(timestamp)
	if timestamp != "" {
		for _, sep := range TimestampSeparators {
			add([]byte(timestamp + sep + decoded))
		}
	}
	return out
}

// SignHex returns the hex HMAC-SHA256 of msg, the form most providers send.
func SignHex(secret string, msg []byte) string {
	return hex.EncodeToString(NewVerifier(secret).mac(msg))
}

// SignBase64 returns the base64 HMAC-SHA256 of msg.
func SignBase64(secret string, msg []byte) string {
	return base64.StdEncoding.EncodeToString(NewVerifier(secret).mac(msg))
}

func normalize(signature string) string {
	signature = strings.TrimSpace(signature)
	if i := strings.IndexByte(signature, '='); i > 0 && strings.EqualFold(signature[:i], "sha256") {
		signature = signature[i+1:]
	}
	return signature
}
