package utils

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Contains reports whether v is present in s.
func Contains[T comparable](s []T, v T) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// HasExtension reports whether the file name ends in one of the provided
// extensions. The comparison is case insensitive.
func HasExtension(name string, exts []string) bool {
	return Contains(exts, strings.ToLower(filepath.Ext(name)))
}

// DetectContentType detects the file type by reading MIME type information of the file content.
func DetectContentType(fname string) (string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("could not close the opened file: %v", err)
		}
	}()

	// Only the first 512 bytes are used to sniff the content type.
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil {
		return "", err
	}

	// Always returns a valid content-type and "application/octet-stream" if no others seemed to match.
	return http.DetectContentType(buffer[:n]), nil
}

// IsImage reports whether the sniffed content type of the file is an image.
func IsImage(fname string) bool {
	ctype, err := DetectContentType(fname)
	if err != nil {
		return false
	}
	return strings.HasPrefix(ctype, "image/")
}
