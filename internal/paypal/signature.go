/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"storefront-deposits-go/internal/store"

	"go.uber.org/zap"
)

// Transmission headers PayPal attaches to every webhook delivery.
const (
	HeaderTransmissionId   = "PAYPAL-TRANSMISSION-ID"
	HeaderTransmissionTime = "PAYPAL-TRANSMISSION-TIME"
	HeaderTransmissionSig  = "PAYPAL-TRANSMISSION-SIG"
	HeaderCertURL          = "PAYPAL-CERT-URL"
	HeaderAuthAlgo         = "PAYPAL-AUTH-ALGO"

	verifyPath          = "/v1/notifications/verify-webhook-signature"
	verificationSuccess = "SUCCESS"
)

// Transmission is the signature material of one webhook delivery.
type Transmission struct {
	Id       string
	Time     string
	Sig      string
	CertURL  string
	AuthAlgo string
}

func TransmissionFromHeader(h http.Header) Transmission {
	return Transmission{
		Id:       strings.TrimSpace(h.Get(HeaderTransmissionId)),
		Time:     strings.TrimSpace(h.Get(HeaderTransmissionTime)),
		Sig:      strings.TrimSpace(h.Get(HeaderTransmissionSig)),
		CertURL:  strings.TrimSpace(h.Get(HeaderCertURL)),
		AuthAlgo: strings.TrimSpace(h.Get(HeaderAuthAlgo)),
	}
}

// Complete reports whether every header the provider needs for verification is present.
func (t Transmission) Complete() bool {
	return t.Id != "" && t.Time != "" && t.Sig != "" && t.CertURL != "" && t.AuthAlgo != ""
}

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionId   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookId        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type verifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}

// VerifyWebhookSignature asks the provider whether payload was signed for the
// webhook subscription webhookId. The raw payload is forwarded untouched.
func (c *Client) VerifyWebhookSignature(ctx context.Context, webhookId string, t Transmission, payload []byte) (bool, error) {
	if webhookId == "" {
		return false, fmt.Errorf("%w: webhook id is required", store.ErrValidation)
	}
	if !t.Complete() || !json.Valid(payload) {
		return false, nil
	}

	body, err := json.Marshal(verifyRequest{
		AuthAlgo:         t.AuthAlgo,
		CertURL:          t.CertURL,
		TransmissionId:   t.Id,
		TransmissionSig:  t.Sig,
		TransmissionTime: t.Time,
		WebhookId:        webhookId,
		WebhookEvent:     json.RawMessage(payload),
	})
	if err != nil {
		return false, fmt.Errorf("encode verification request: %w", err)
	}

	var resp verifyResponse
	if err := c.do(ctx, http.MethodPost, verifyPath, body, &resp); err != nil {
		return false, fmt.Errorf("verify webhook signature: %w", err)
	}
	return strings.EqualFold(resp.VerificationStatus, verificationSuccess), nil
}

// SignatureChecker verifies a delivery's transmission headers with the provider.
type SignatureChecker interface {
	VerifyWebhookSignature(ctx context.Context, webhookId string, t Transmission, payload []byte) (bool, error)
}

// Verifier authenticates webhook deliveries. Without a webhook id it accepts every
// delivery and says so in the log (reduced-trust mode).
type Verifier struct {
	checker   SignatureChecker
	webhookId string
}

func NewVerifier(checker SignatureChecker, webhookId string) *Verifier {
	return &Verifier{checker: checker, webhookId: strings.TrimSpace(webhookId)}
}

// ReducedTrust reports whether signatures are being skipped.
func (v *Verifier) ReducedTrust() bool {
	return v.webhookId == ""
}

// Verify returns false for deliveries that are unsigned or rejected by the
// provider. An error means the provider could not answer.
func (v *Verifier) Verify(ctx context.Context, header http.Header, payload []byte) (bool, error) {
	if v.ReducedTrust() {
		zap.L().Warn("Webhook signature verification skipped: no webhook id configured (reduced-trust mode)")
		return true, nil
	}
	if v.checker == nil {
		return false, fmt.Errorf("%w: no provider client to verify webhook signatures", store.ErrProviderUnavailable)
	}

	t := TransmissionFromHeader(header)
	if !t.Complete() {
		zap.L().Warn("Webhook delivery is missing transmission headers",
			zap.String("transmission_id", t.Id))
		return false, nil
	}

	ok, err := v.checker.VerifyWebhookSignature(ctx, v.webhookId, t, payload)
	if err != nil {
		return false, err
	}
	if !ok {
		zap.L().Warn("Provider rejected webhook signature",
			zap.String("transmission_id", t.Id),
			zap.String("auth_algo", t.AuthAlgo))
	}
	return ok, nil
}
