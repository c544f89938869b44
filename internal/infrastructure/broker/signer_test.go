package broker

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"testing"
	"time"
)

func referenceOKX(secret, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func referenceGate(secret, method, path, query, body, timestamp string) string {
	h := sha512.New()
	h.Write([]byte(body))
	bodyHash := hex.EncodeToString(h.Sum(nil))

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(method + "\n" + path + "\n" + query + "\n" + bodyHash + "\n" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignOKX_KnownVector(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog"), base64
	expected := "97yD9DBThCSxMpjmqm+xQ+9NWaFJRhdZl0edvC0aPNg="

	got := SignOKX("key", "The quick brown fox", " jumps", " over the lazy dog", "")
	if got != expected {
		t.Errorf("HMAC mismatch. Expected %s, got %s", expected, got)
	}
}

func TestSignOKX_MatchesFormula(t *testing.T) {
	testCases := []struct {
		name                           string
		secret, ts, method, path, body string
	}{
		{"get without query", "s3cr3t", "2026-10-18T00:00:00.000Z", "GET", "/api/v5/broker/nd/info", ""},
		{"get with query", "s3cr3t", "2026-10-18T12:30:01.123Z", "GET", "/api/v5/broker/nd/rebate-daily?begin=1&end=2&limit=100", ""},
		{"post with body", "another", "2020-12-08T09:08:57.715Z", "POST", "/api/v5/trade/order", `{"instId":"BTC-USDT"}`},
		{"empty secret", "", "2020-12-08T09:08:57.715Z", "GET", "/", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SignOKX(tc.secret, tc.ts, tc.method, tc.path, tc.body)
			want := referenceOKX(tc.secret, tc.ts, tc.method, tc.path, tc.body)
			if got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
		})
	}
}

func TestSignGate_MatchesFormula(t *testing.T) {
	testCases := []struct {
		name                                  string
		secret, method, path, query, body, ts string
	}{
		{"commission history", "gsecret", "GET", "/api/v4/rebate/broker/commission_history", "from=1&limit=100&to=2", "", "1760745600"},
		{"no query", "gsecret", "GET", "/api/v4/wallet/total_balance", "", "", "1760745600"},
		{"with body", "k", "POST", "/api/v4/spot/orders", "", `{"currency_pair":"BTC_USDT"}`, "1541993715"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SignGate(tc.secret, tc.method, tc.path, tc.query, tc.body, tc.ts)
			want := referenceGate(tc.secret, tc.method, tc.path, tc.query, tc.body, tc.ts)
			if got != want {
				t.Errorf("Expected %s, got %s", want, got)
			}
			if len(got) != 128 {
				t.Errorf("Expected 128 hex chars, got %d", len(got))
			}
		})
	}
}

func TestSignGate_BodyAffectsSignature(t *testing.T) {
	a := SignGate("k", "GET", "/p", "", "", "1")
	b := SignGate("k", "GET", "/p", "", "{}", "1")
	if a == b {
		t.Error("Different bodies should produce different signatures")
	}
}

func TestOKXSigner_Headers(t *testing.T) {
	fixed := time.Date(2026, 10, 18, 9, 8, 57, 715_000_000, time.UTC)
	signer := NewOKXSigner("key", "secret", "pass")
	signer.now = func() time.Time { return fixed }

	path := "/api/v5/broker/nd/info"
	headers := signer.Headers("GET", path, "")

	if headers.Get("OK-ACCESS-KEY") != "key" {
		t.Errorf("Expected OK-ACCESS-KEY to be 'key', got %s", headers.Get("OK-ACCESS-KEY"))
	}
	if headers.Get("OK-ACCESS-PASSPHRASE") != "pass" {
		t.Errorf("Expected OK-ACCESS-PASSPHRASE to be 'pass', got %s", headers.Get("OK-ACCESS-PASSPHRASE"))
	}
	if ts := headers.Get("OK-ACCESS-TIMESTAMP"); ts != "2026-10-18T09:08:57.715Z" {
		t.Errorf("Unexpected timestamp %s", ts)
	}
	want := referenceOKX("secret", "2026-10-18T09:08:57.715Z", "GET", path, "")
	if headers.Get("OK-ACCESS-SIGN") != want {
		t.Errorf("Expected signature %s, got %s", want, headers.Get("OK-ACCESS-SIGN"))
	}
}

func TestOKXSigner_TimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	signer := NewOKXSigner("key", "secret", "pass")
	signer.now = func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, loc) }

	if ts := signer.Headers("GET", "/", "").Get("OK-ACCESS-TIMESTAMP"); ts != "2026-10-18T00:00:00.000Z" {
		t.Errorf("Expected UTC timestamp, got %s", ts)
	}
}

func TestGateSigner_Headers(t *testing.T) {
	fixed := time.Unix(1760745600, 0)
	signer := NewGateSigner("gkey", "gsecret")
	signer.now = func() time.Time { return fixed }

	headers := signer.Headers("GET", "/api/v4/wallet/total_balance", "", "")

	if headers.Get("KEY") != "gkey" {
		t.Errorf("Expected KEY 'gkey', got %s", headers.Get("KEY"))
	}
	ts := headers.Get("Timestamp")
	if ts != strconv.FormatInt(fixed.Unix(), 10) {
		t.Errorf("Expected epoch seconds timestamp, got %s", ts)
	}
	want := referenceGate("gsecret", "GET", "/api/v4/wallet/total_balance", "", "", ts)
	if headers.Get("SIGN") != want {
		t.Errorf("Expected signature %s, got %s", want, headers.Get("SIGN"))
	}
}
