package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidImageType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

	tests := []struct {
		contentType string
		expected    bool
	}{
		{"image/jpeg", true},
		{"IMAGE/PNG", true},
		{"image/webp", true},
		{"image/gif", false},
		{"application/pdf", false},
		{"", false},
		{"image/png; charset=binary", true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidImageType(tt.contentType, allowed))
		})
	}
}

func TestIsValidImageType_ConfiguredList(t *testing.T) {
	assert.True(t, IsValidImageType("image/png", []string{"image/png"}))
	assert.False(t, IsValidImageType("image/jpeg", []string{"image/png"}))
	assert.False(t, IsValidImageType("image/png", nil))
}

func TestIsValidImageExtension(t *testing.T) {
	assert.True(t, IsValidImageExtension("photo.JPG"))
	assert.True(t, IsValidImageExtension("photo.jpeg"))
	assert.True(t, IsValidImageExtension("photo.webp"))
	assert.False(t, IsValidImageExtension("photo.gif"))
	assert.False(t, IsValidImageExtension("photo"))
}

func TestOutputFilename(t *testing.T) {
	assert.Equal(t, "beach.webp", OutputFilename("beach.jpg", "", "webp"))
	assert.Equal(t, "beach_small.webp", OutputFilename("beach.jpg", "_small", "webp"))
	assert.Equal(t, "archive.tar.webp", OutputFilename("archive.tar.png", "", "webp"))
	assert.Equal(t, "evil.webp", OutputFilename("../../evil.png", "", "webp"))
	assert.Equal(t, "win.webp", OutputFilename(`C:\Users\me\win.png`, "", "webp"))
}

func TestCompressionRatio(t *testing.T) {
	assert.Equal(t, 50.0, CompressionRatio(1000, 500))
	assert.Equal(t, 33.3, CompressionRatio(3, 2))
	assert.Equal(t, -100.0, CompressionRatio(100, 200))
	assert.Equal(t, 0.0, CompressionRatio(0, 0))
	assert.Equal(t, 0.0, CompressionRatio(0, 120))
}

func TestGenerateStorageKey(t *testing.T) {
	assert.Equal(t, "archives/abc/compressed_images.zip", GenerateStorageKey("abc", "/tmp/x/compressed_images.zip"))
}
