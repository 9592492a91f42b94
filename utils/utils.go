package utils

import (
	rndm "math/rand"
	"strings"
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789")

func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

// GenerateID returns prefix followed by n random lowercase alphanumerics.
func GenerateID(prefix string, n int) string {
	return prefix + GenerateRandomString(n)
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
