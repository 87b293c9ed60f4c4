package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bannerLines(t *testing.T, color string) []string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, PrintBanner(&buf, "kernel", color))
	require.NotEmpty(t, buf.String())
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
}

func TestPrintBannerColored(t *testing.T) {
	for _, line := range bannerLines(t, "blue") {
		assert.True(t, strings.HasPrefix(line, bannerColors["blue"]), line)
		assert.True(t, strings.HasSuffix(line, colorReset), line)
	}
}

func TestPrintBannerPlain(t *testing.T) {
	for _, line := range bannerLines(t, "none") {
		assert.NotContains(t, line, "\x1b[")
		assert.NotEmpty(t, strings.TrimSpace(line))
		assert.Equal(t, strings.TrimRight(line, " "), line)
	}
}

func TestPrintBannerUnknownColor(t *testing.T) {
	var buf bytes.Buffer
	assert.EqualError(t, PrintBanner(&buf, "kernel", "purple"), `unknown banner color "purple"`)
	assert.Empty(t, buf.String())
}

func TestBannerColors(t *testing.T) {
	assert.Equal(t, []string{"blue", "cyan", "green", "none", "red", "yellow"}, BannerColors())
}
