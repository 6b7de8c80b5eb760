// Package auth provides API key utilities for the meteoreg API server:
// secure key generation, bcrypt hashing, and validation against a set of
// stored hashes.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyLength is the length of the random part of an API key
	APIKeyLength = 32
	// APIKeyPrefix is the standard prefix for all API keys
	APIKeyPrefix = "mk"

	// BcryptCost is the bcrypt cost for hashing API keys
	BcryptCost = 12
	// BcryptMaxInputLength is the maximum input length for bcrypt (72 bytes)
	BcryptMaxInputLength = 72
)

// GenerateAPIKey creates a new random API key.
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, APIKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	// Base32 for readability (no ambiguous characters)
	randomPart := strings.ToLower(base32.StdEncoding.EncodeToString(randomBytes))
	if len(randomPart) > APIKeyLength {
		randomPart = randomPart[:APIKeyLength]
	}

	return fmt.Sprintf("%s_%s", APIKeyPrefix, randomPart), nil
}

// HashAPIKey creates a bcrypt hash of an API key for secure storage.
func HashAPIKey(apiKey string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}

	// bcrypt has a 72-byte limit, so longer keys are pre-hashed with SHA-256
	keyBytes := []byte(apiKey)
	if len(keyBytes) > BcryptMaxInputLength {
		sum := sha256.Sum256(keyBytes)
		keyBytes = sum[:]
	}

	hash, err := bcrypt.GenerateFromPassword(keyBytes, BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}

	return string(hash), nil
}

// ValidateAPIKey checks if a provided API key matches the stored hash.
func ValidateAPIKey(apiKey, storedHash string) bool {
	if apiKey == "" || storedHash == "" {
		return false
	}

	keyBytes := []byte(apiKey)
	if len(keyBytes) > BcryptMaxInputLength {
		sum := sha256.Sum256(keyBytes)
		keyBytes = sum[:]
	}

	return bcrypt.CompareHashAndPassword([]byte(storedHash), keyBytes) == nil
}

// ValidateAgainstHashes checks a key against every stored hash.
func ValidateAgainstHashes(apiKey string, hashes []string) bool {
	for _, hash := range hashes {
		if ValidateAPIKey(apiKey, hash) {
			return true
		}
	}
	return false
}

// IsValidAPIKeyFormat checks if an API key has the expected shape.
func IsValidAPIKeyFormat(apiKey string) bool {
	if !strings.HasPrefix(apiKey, APIKeyPrefix+"_") {
		return false
	}
	if len(apiKey) < 15 || len(apiKey) > 50 {
		return false
	}
	for _, char := range apiKey {
		if (char < 'a' || char > 'z') &&
			(char < 'A' || char > 'Z') &&
			(char < '0' || char > '9') &&
			char != '_' {
			return false
		}
	}
	return true
}
