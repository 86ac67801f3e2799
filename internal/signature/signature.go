// Package signature verifies Tailscale webhook signatures.
//
// Tailscale signs each delivery with HMAC-SHA256 over "<t>.<body>" and sends
// the result in the Tailscale-Webhook-Signature header as "t=<unix>,v1=<hex>".
// The timestamp is bound into the signed material, so freshness checking
// doubles as replay protection.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// now is swapped out in tests for deterministic freshness checks.
var now = time.Now

var errMissingTokens = errors.New("signature header missing t= or v1= token")

// ParseHeader splits a "t=<unix>,v1=<hex>" header into its timestamp and
// signature parts. Tokens are matched by prefix; anything other than t= and
// v1= is ignored. A v1 value containing '=' is preserved intact because only
// the prefix is stripped, never a second split.
func ParseHeader(header string) (timestamp int64, sig string, err error) {
	var haveT, haveSig bool
	for _, part := range strings.Split(header, ",") {
		switch {
		case strings.HasPrefix(part, "t="):
			timestamp, err = strconv.ParseInt(part[len("t="):], 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid timestamp in signature header: %w", err)
			}
			haveT = true
		case strings.HasPrefix(part, "v1="):
			sig = part[len("v1="):]
			haveSig = true
		}
	}
	if !haveT || !haveSig {
		return 0, "", errMissingTokens
	}
	return timestamp, sig, nil
}

// Compute returns the lowercase hex HMAC-SHA256 of "<timestamp>.<body>"
// keyed with secret. The body bytes are used exactly as transmitted.
func Compute(timestamp int64, body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// freshEnough rejects timestamps from the future or older than tolerance.
// The bound is inclusive: age == tolerance is still accepted, so a tolerance
// of zero admits only an exact-second match.
func freshEnough(timestamp int64, toleranceSeconds int) bool {
	age := now().Unix() - timestamp
	if age < 0 {
		slog.Warn("webhook timestamp is in the future", slog.Int64("age_seconds", age))
		return false
	}
	if age > int64(toleranceSeconds) {
		slog.Warn("webhook timestamp too old",
			slog.Int64("age_seconds", age),
			slog.Int("tolerance_seconds", toleranceSeconds),
		)
		return false
	}
	return true
}

// Verify authenticates a webhook delivery. It returns true only when the
// header parses, the timestamp is within toleranceSeconds of the local clock,
// and the v1 signature matches the HMAC of the raw body.
//
// Every failure mode collapses to false. Callers must not be able to tell a
// malformed header from a stale timestamp from a bad MAC; the distinction is
// logged here for operators and goes no further.
func Verify(header string, body, secret []byte, toleranceSeconds int) bool {
	timestamp, provided, err := ParseHeader(header)
	if err != nil {
		slog.Warn("could not parse signature header", slog.String("error", err.Error()))
		return false
	}

	if !freshEnough(timestamp, toleranceSeconds) {
		return false
	}

	expected := Compute(timestamp, body, secret)

	// hmac.Equal is constant-time and handles length mismatches.
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		slog.Warn("webhook signature mismatch",
			slog.Int64("timestamp", timestamp),
			slog.Int("body_len", len(body)),
		)
		return false
	}

	return true
}
