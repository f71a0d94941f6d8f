package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"ms-reconciliation/internal/models"
)

// hmacSignatureKey is where the provider puts the signature it computed.
const hmacSignatureKey = "hmacSignature"

// HMACValidator checks notification authenticity against the shared key
// configured with the provider. The signing string is the colon-joined
// escaped reference fields in the provider's documented order.
type HMACValidator struct {
	key []byte
}

// NewHMACValidator decodes the base64 key issued by the provider.
func NewHMACValidator(base64Key string) (*HMACValidator, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode hmac key: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("hmac key is empty")
	}
	return &HMACValidator{key: key}, nil
}

// Validate returns the rejection reason, or "" when the signature is good.
func (v *HMACValidator) Validate(n *models.Notification) string {
	signature := n.AdditionalData[hmacSignatureKey]
	if signature == "" {
		return "notification carries no hmac signature"
	}
	if !hmac.Equal([]byte(v.Sign(n)), []byte(signature)) {
		return "hmac signature does not match notification contents"
	}
	return ""
}

// Sign computes the base64 signature for a notification.
func (v *HMACValidator) Sign(n *models.Notification) string {
	var value int64
	var currency string
	if n.Amount != nil {
		value = n.Amount.Value
		currency = n.Amount.Currency
	}
	success := "false"
	if n.Success.Bool() {
		success = "true"
	}
	payload := strings.Join([]string{
		escapeField(n.PSPReference),
		escapeField(n.OriginalReference),
		escapeField(n.MerchantAccountCode),
		escapeField(n.MerchantReference),
		strconv.FormatInt(value, 10),
		currency,
		n.EventCode,
		success,
	}, ":")

	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// escapeField protects the join character inside field values.
func escapeField(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, ":", `\:`)
}
