package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const secret = "whsec_test"

func TestVerify_Candidates(t *testing.T) {
	body := []byte(`{"data":{"order":{"order_id":"SCRIM-1","order_status":"PAID"}}}`)
	ts := "1760000000"

	cases := []struct {
		name      string
		signature string
		timestamp string
		want      bool
	}{
		{"hex over raw body", SignHex(secret, body), "", true},
		{"uppercase hex", strings.ToUpper(SignHex(secret, body)), "", true},
		{"prefixed hex", "sha256=" + SignHex(secret, body), "", true},
		{"base64 over raw body", SignBase64(secret, body), "", true},
		{"timestamp concatenated", SignBase64(secret, append([]byte(ts), body...)), ts, true},
		{"timestamp dot", SignHex(secret, []byte(ts+"."+string(body))), ts, true},
		{"timestamp colon", SignBase64(secret, []byte(ts+":"+string(body))), ts, true},
		{"timestamp form without header", SignHex(secret, []byte(ts+"."+string(body))), "", false},
		{"wrong secret", SignHex("other", body), ts, false},
		{"empty signature", "", ts, false},
		{"garbage", "not-a-signature", ts, false},
	}

	v := NewVerifier(secret)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Verify(body, tc.signature, tc.timestamp))
		})
	}
}

func TestVerify_InvalidUTF8UsesDecodedString(t *testing.T) {
	body := []byte{'{', 0xff, '}'}
	decoded := []byte("{�}")

	v := NewVerifier(secret)
	assert.True(t, v.Verify(body, SignHex(secret, body), ""))
	assert.True(t, v.Verify(body, SignHex(secret, decoded), ""))
}

func TestVerify_EmptySecretRejects(t *testing.T) {
	body := []byte("{}")
	assert.False(t, NewVerifier("").Verify(body, SignHex("", body), ""))
}

func TestCandidates_Deduplicates(t *testing.T) {
	assert.Len(t, Candidates([]byte("{}"), ""), 1)
	assert.Len(t, Candidates([]byte("{}"), "123"), 4)
	assert.Len(t, Candidates([]byte{0xff}, "123"), 5)
}
