package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomSource đọc từ crypto/rand, render base64 URL-safe
type RandomSource struct{}

func NewRandomSource() *RandomSource { return &RandomSource{} }

func (RandomSource) RandomString(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
