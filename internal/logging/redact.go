package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const redactedValue = "[REDACTED]"

var (
	fingerprintKey = randomKey()

	// matched exactly, so that e.g. status_code survives
	secretKeys = map[string]struct{}{
		"pin":      {},
		"pin_hash": {},
		"code":     {},
	}
	secretKeyParts = []string{"password", "token", "secret"}

	personalKeys = map[string]struct{}{
		"ic_number":    {},
		"email":        {},
		"phone":        {},
		"phone_number": {},
		"destination":  {},
	}
)

// RedactingHandler removes credentials from log records and replaces
// customer identifiers with per-process fingerprints, so lines about the
// same customer can still be correlated.
type RedactingHandler struct {
	next slog.Handler
}

func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(redactAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		clean = append(clean, redactAttr(attr))
	}
	return &RedactingHandler{next: h.next.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

// Fingerprint returns a short keyed BLAKE2b digest of value. Digests are
// stable for the life of the process only.
func Fingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mac, err := blake2b.New256(fingerprintKey)
	if err != nil {
		return redactedValue
	}
	mac.Write([]byte(value))
	return "fp_" + hex.EncodeToString(mac.Sum(nil)[:8])
}

func redactAttr(attr slog.Attr) slog.Attr {
	key := strings.ToLower(strings.TrimSpace(attr.Key))
	switch {
	case isSecret(key):
		return slog.String(attr.Key, redactedValue)
	case isPersonal(key):
		return slog.String(attr.Key, Fingerprint(valueString(attr.Value)))
	case attr.Value.Kind() == slog.KindGroup:
		group := attr.Value.Group()
		clean := make([]any, 0, len(group))
		for _, a := range group {
			clean = append(clean, redactAttr(a))
		}
		return slog.Group(attr.Key, clean...)
	}
	return attr
}

func isSecret(key string) bool {
	if _, ok := secretKeys[key]; ok {
		return true
	}
	for _, part := range secretKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func isPersonal(key string) bool {
	_, ok := personalKeys[key]
	return ok
}

func valueString(v slog.Value) string {
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return fmt.Sprint(v.Resolve().Any())
}

func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		// an unkeyed digest still hides the raw value
		return nil
	}
	return key
}
