package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vietddude/tmdbproxy/internal/core/config"
)

// SecretHeader carries the shared secret when the header source is configured.
const SecretHeader = "X-Secret"

// SecretChecker compares a caller-supplied secret against the configured one.
// Exactly one source is consulted, chosen by configuration.
type SecretChecker struct {
	secret string
	source config.SecretSource
}

// NewSecretChecker creates a checker for the given secret and source.
func NewSecretChecker(secret string, source config.SecretSource) *SecretChecker {
	if source == "" {
		source = config.SecretFromBody
	}
	return &SecretChecker{secret: secret, source: source}
}

// Check returns ErrUnauthorized unless the request carries the configured
// secret. body is the raw request body; a body that is not a JSON object
// cannot carry a secret.
func (c *SecretChecker) Check(r *http.Request, body []byte) error {
	var supplied string
	switch c.source {
	case config.SecretFromHeader:
		supplied = r.Header.Get(SecretHeader)
	default:
		var envelope struct {
			Secret string `json:"secret"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return ErrUnauthorized
		}
		supplied = envelope.Secret
	}

	if strings.TrimSpace(supplied) == "" || strings.TrimSpace(c.secret) == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(c.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
