package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-reconciliation/internal/utils"
)

func TestParseEventDateNormalizesToUTC(t *testing.T) {
	parsed, err := utils.ParseEventDate("2026-05-01T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())
	assert.Equal(t, "2026-05-01T08:30:00Z", parsed.Format(time.RFC3339))
}

func TestParseEventDateOffsetlessIsUTC(t *testing.T) {
	parsed, err := utils.ParseEventDate("2026-05-01T10:30:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01T10:30:00Z", parsed.Format(time.RFC3339))
}

func TestParseEventDateRejectsGarbage(t *testing.T) {
	_, err := utils.ParseEventDate("")
	assert.Error(t, err)

	_, err = utils.ParseEventDate("yesterday")
	assert.Error(t, err)
}
