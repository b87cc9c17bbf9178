package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewOrderReference returns ORD-<unix millis>-<8 hex chars>. The result is
// URL-safe.
func NewOrderReference(now time.Time) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate order reference: %w", err)
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), hex.EncodeToString(b[:])), nil
}
