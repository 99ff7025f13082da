package qrcode

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	renderer := CreatePNGRenderer(t.TempDir())

	path, err := renderer.Render(context.Background(), "TRX-01J0")

	require.NoError(t, err)
	assert.Equal(t, "qr-TRX-01J0.png", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("\x89PNG")))
}
