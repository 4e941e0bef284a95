package utils

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMath(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(2, Min(2, 3))
	assert.Equal(2, Min(3, 2))
	assert.Equal(3.5, Max(1.0, 3.5))
	assert.Equal(uint8(7), Max(uint8(7), uint8(1)))
	assert.Equal(4, Abs(-4))
	assert.Equal(0.5, Abs(-0.5))

	assert.Equal(0, Clamp(-3, 0, 2))
	assert.Equal(2, Clamp(9, 0, 2))
	assert.Equal(1, Clamp(1, 0, 2))
}

func TestFloorDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{7, 3, 2},
		{6, 3, 2},
		{0, 3, 0},
		{-1, 3, -1},
		{-3, 3, -1},
		{-4, 3, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FloorDiv(tt.a, tt.b), "%d / %d", tt.a, tt.b)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, 1))
}

func TestHasExtension(t *testing.T) {
	exts := []string{".jpg", ".png"}
	assert.True(t, HasExtension("frame.PNG", exts))
	assert.True(t, HasExtension("dir/frame.jpg", exts))
	assert.False(t, HasExtension("frame.gif", exts))
	assert.False(t, HasExtension("frame", exts))
}

func TestIsImage(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	img := filepath.Join(dir, "frame")
	require.NoError(t, os.WriteFile(img, buf.Bytes(), 0644))

	txt := filepath.Join(dir, "notes.png")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0644))

	ctype, err := DetectContentType(img)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ctype)

	assert.True(t, IsImage(img))
	assert.False(t, IsImage(txt))
	assert.False(t, IsImage(filepath.Join(dir, "missing")))
}

func TestDecorateText(t *testing.T) {
	assert.Equal(t, ErrorColor+"failed"+DefaultColor, DecorateText("failed", ErrorMessage))
	assert.Equal(t, SuccessColor+"ok"+DefaultColor, DecorateText("ok", SuccessMessage))
	assert.Equal(t, DefaultColor+"plain"+DefaultColor, DecorateText("plain", DefaultMessage))
	assert.Equal(t, "raw", DecorateText("raw", MessageType(42)))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "1.50s", FormatTime(1500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatTime(125*time.Second+300*time.Millisecond))
	assert.Equal(t, "1h1m1s", FormatTime(time.Hour+time.Minute+time.Second))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "30.0 fps", FormatRate(60, 2*time.Second))
	assert.Equal(t, "n/a", FormatRate(10, 0))
}
