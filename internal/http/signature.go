package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/pkg/logger"
	"go.uber.org/zap"
)

const (
	SignatureHeader          = "X-Signature"
	SignatureTimestampHeader = "X-Signature-Timestamp"

	defaultSignatureTolerance = 5 * time.Minute
)

// SignCallback returns the hex HMAC-SHA256 a payment provider sends with a
// callback. The MAC covers the unix timestamp, the request path and the body,
// so a signature for one order cannot be replayed against another.
func SignCallback(secret string, ts time.Time, path string, body []byte) string {
	return hex.EncodeToString(callbackMAC([]byte(secret), ts.Unix(), path, body))
}

func callbackMAC(secret []byte, unix int64, path string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(unix, 10)))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(path))
	mac.Write([]byte{'\n'})
	mac.Write(body)
	return mac.Sum(nil)
}

// VerifySignature rejects requests without a valid callback signature or
// whose timestamp is further than tolerance from now.
func VerifySignature(secret string, tolerance time.Duration) func(http.Handler) http.Handler {
	return verifySignature(secret, tolerance, time.Now)
}

func verifySignature(secret string, tolerance time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	if tolerance <= 0 {
		tolerance = defaultSignatureTolerance
	}
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid_request", "could not read request body")
				return
			}

			if reason := checkSignature(key, r, body, tolerance, now()); reason != "" {
				logger.FromContext(r.Context()).Warn("rejected payment callback",
					zap.String("path", r.URL.Path),
					zap.String("reason", reason))
				respondError(w, http.StatusUnauthorized, "invalid_signature", "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// checkSignature returns why the request is not authentic, or "".
func checkSignature(key []byte, r *http.Request, body []byte, tolerance time.Duration, now time.Time) string {
	unix, err := strconv.ParseInt(r.Header.Get(SignatureTimestampHeader), 10, 64)
	if err != nil {
		return "missing or malformed timestamp"
	}
	if skew := now.Sub(time.Unix(unix, 0)); skew > tolerance || skew < -tolerance {
		return "timestamp outside tolerance"
	}

	got, err := hex.DecodeString(r.Header.Get(SignatureHeader))
	if err != nil || len(got) == 0 {
		return "missing or malformed signature"
	}
	if !hmac.Equal(got, callbackMAC(key, unix, r.URL.Path, body)) {
		return "signature mismatch"
	}
	return ""
}
