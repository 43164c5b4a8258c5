package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Webhook header names set by the provider's delivery service.
const (
	HeaderWebhookID        = "svix-id"
	HeaderWebhookTimestamp = "svix-timestamp"
	HeaderWebhookSignature = "svix-signature"

	DefaultWebhookTolerance = 5 * time.Minute
)

var (
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	ErrWebhookHeaders       = errors.New("missing webhook headers")
	ErrWebhookTimestamp     = errors.New("webhook timestamp outside tolerance")
	ErrWebhookSignature     = errors.New("invalid webhook signature")
)

// WebhookVerifier authenticates signed lifecycle deliveries. Signatures are
// checked by the svix library; the replay window is enforced here so it can be
// configured.
type WebhookVerifier struct {
	hook      *svix.Webhook
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier accepts a whsec_ prefixed secret. An empty secret yields a
// verifier that rejects every delivery with ErrWebhookSecretMissing.
func NewWebhookVerifier(secret string, tolerance time.Duration) (*WebhookVerifier, error) {
	if tolerance <= 0 {
		tolerance = DefaultWebhookTolerance
	}
	v := &WebhookVerifier{tolerance: tolerance, now: time.Now}
	if secret == "" {
		return v, nil
	}
	hook, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	v.hook = hook
	return v, nil
}

// Verify checks the signature headers against payload.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) error {
	if v.hook == nil {
		return ErrWebhookSecretMissing
	}
	if headers.Get(HeaderWebhookID) == "" || headers.Get(HeaderWebhookTimestamp) == "" || headers.Get(HeaderWebhookSignature) == "" {
		return ErrWebhookHeaders
	}

	unix, err := strconv.ParseInt(headers.Get(HeaderWebhookTimestamp), 10, 64)
	if err != nil {
		return ErrWebhookTimestamp
	}
	sent := time.Unix(unix, 0)
	now := v.now()
	if now.Sub(sent) > v.tolerance || sent.Sub(now) > v.tolerance {
		return ErrWebhookTimestamp
	}

	if err := v.hook.VerifyIgnoringTimestamp(payload, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	return nil
}

// Sign returns the "v1,<signature>" header entry for a delivery.
func (v *WebhookVerifier) Sign(id string, ts time.Time, payload []byte) (string, error) {
	if v.hook == nil {
		return "", ErrWebhookSecretMissing
	}
	return v.hook.Sign(id, ts, payload)
}
