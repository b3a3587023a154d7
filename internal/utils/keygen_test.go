package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderIDFormat(t *testing.T) {
	id, err := GenerateOrderID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "LSN-"))
	assert.Len(t, id, len("LSN-")+12)
	assert.Equal(t, strings.ToUpper(id), id)
}

func TestNormalizeLicenseKeys(t *testing.T) {
	in := []string{" KEY-1 ", "KEY-2", "", "KEY-1", "  ", "KEY-3"}
	out := NormalizeLicenseKeys(in)

	assert.Equal(t, []string{"KEY-1", "KEY-2", "KEY-3"}, out)
}

func TestNormalizeLicenseKeysEmptyInput(t *testing.T) {
	assert.Empty(t, NormalizeLicenseKeys(nil))
	assert.Empty(t, NormalizeLicenseKeys([]string{"", "  "}))
}
