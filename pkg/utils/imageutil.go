package utils

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]struct{}{
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".webp": {},
}

// IsValidImageType checks if content type is one of the accepted upload types
func IsValidImageType(contentType string, allowedTypes []string) bool {
	ct := strings.ToLower(contentType)
	for _, allowed := range allowedTypes {
		if strings.Contains(ct, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

// IsValidImageExtension checks the extension of an uploaded filename
func IsValidImageExtension(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// BaseName strips directories and the extension from an uploaded filename.
func BaseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputFilename builds "<base><suffix>.<format>" for a transformed upload.
func OutputFilename(originalName, suffix, format string) string {
	return BaseName(originalName) + suffix + "." + format
}

// CompressionRatio returns (original-compressed)/original*100 rounded to one
// decimal place. A zero original size yields 0.
func CompressionRatio(originalSize, compressedSize int64) float64 {
	if originalSize <= 0 {
		return 0
	}

	ratio := float64(originalSize-compressedSize) / float64(originalSize) * 100
	return math.Round(ratio*10) / 10
}

// GenerateStorageKey builds the object key an archive is mirrored under.
func GenerateStorageKey(batchID, filename string) string {
	return fmt.Sprintf("archives/%s/%s", batchID, filepath.Base(filename))
}
