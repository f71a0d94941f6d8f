package notification_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-reconciliation/internal/models"
	"ms-reconciliation/internal/notification"
)

func testHMACKey() string {
	return base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func signedNotification(t *testing.T, v *notification.HMACValidator) *models.Notification {
	t.Helper()
	n := authNotification()
	n.MerchantAccountCode = "MerchantECOM"
	n.AdditionalData = map[string]string{}
	n.AdditionalData["hmacSignature"] = v.Sign(n)
	return n
}

func TestHMACValidatorAcceptsSignedNotification(t *testing.T) {
	v, err := notification.NewHMACValidator(testHMACKey())
	require.NoError(t, err)

	n := signedNotification(t, v)
	assert.Empty(t, v.Validate(n))
}

func TestHMACValidatorRejectsTampering(t *testing.T) {
	v, err := notification.NewHMACValidator(testHMACKey())
	require.NoError(t, err)

	n := signedNotification(t, v)
	n.Amount.Value = 99999
	assert.NotEmpty(t, v.Validate(n))

	n = signedNotification(t, v)
	n.PSPReference = "P2"
	assert.NotEmpty(t, v.Validate(n))

	n = signedNotification(t, v)
	n.Success = false
	assert.NotEmpty(t, v.Validate(n))
}

func TestHMACValidatorRejectsMissingSignature(t *testing.T) {
	v, err := notification.NewHMACValidator(testHMACKey())
	require.NoError(t, err)

	n := authNotification()
	assert.NotEmpty(t, v.Validate(n))
}

func TestHMACValidatorEscapesSeparators(t *testing.T) {
	v, err := notification.NewHMACValidator(testHMACKey())
	require.NoError(t, err)

	n := signedNotification(t, v)
	n.MerchantReference = "order:42"
	n.AdditionalData["hmacSignature"] = v.Sign(n)
	assert.Empty(t, v.Validate(n))
}

func TestNewHMACValidatorRejectsBadKey(t *testing.T) {
	_, err := notification.NewHMACValidator("%%%not-base64%%%")
	assert.Error(t, err)

	_, err = notification.NewHMACValidator("")
	assert.Error(t, err)
}
