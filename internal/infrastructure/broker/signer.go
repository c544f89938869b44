package broker

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// okxTimestampLayout matches the ISO-8601 instant OKX expects, e.g. 2020-12-08T09:08:57.715Z.
const okxTimestampLayout = "2006-01-02T15:04:05.000Z"

// SignOKX returns base64(HMAC-SHA256(secret, timestamp+method+requestPath+body)).
// requestPath must include the query string exactly as sent.
func SignOKX(secret, timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignGate implements the Gate APIv4 scheme:
// hex(HMAC-SHA512(secret, method\npath\nquery\nhex(SHA512(body))\ntimestamp)).
func SignGate(secret, method, path, query, body, timestamp string) string {
	bodyHash := sha512.Sum512([]byte(body))
	signString := method + "\n" + path + "\n" + query + "\n" + hex.EncodeToString(bodyHash[:]) + "\n" + timestamp

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(signString))
	return hex.EncodeToString(mac.Sum(nil))
}

type OKXSigner struct {
	apiKey     string
	secretKey  string
	passphrase string
	now        func() time.Time
}

func NewOKXSigner(apiKey, secretKey, passphrase string) *OKXSigner {
	return &OKXSigner{
		apiKey:     apiKey,
		secretKey:  secretKey,
		passphrase: passphrase,
		now:        time.Now,
	}
}

func (s *OKXSigner) Headers(method, requestPath, body string) http.Header {
	timestamp := s.now().UTC().Format(okxTimestampLayout)

	h := make(http.Header)
	h.Set("OK-ACCESS-KEY", s.apiKey)
	h.Set("OK-ACCESS-SIGN", SignOKX(s.secretKey, timestamp, method, requestPath, body))
	h.Set("OK-ACCESS-TIMESTAMP", timestamp)
	h.Set("OK-ACCESS-PASSPHRASE", s.passphrase)
	h.Set("Content-Type", "application/json")
	return h
}

type GateSigner struct {
	apiKey    string
	secretKey string
	now       func() time.Time
}

func NewGateSigner(apiKey, secretKey string) *GateSigner {
	return &GateSigner{
		apiKey:    apiKey,
		secretKey: secretKey,
		now:       time.Now,
	}
}

func (s *GateSigner) Headers(method, path, query, body string) http.Header {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)

	h := make(http.Header)
	h.Set("KEY", s.apiKey)
	h.Set("SIGN", SignGate(s.secretKey, method, path, query, body, timestamp))
	h.Set("Timestamp", timestamp)
	h.Set("Content-Type", "application/json")
	return h
}
