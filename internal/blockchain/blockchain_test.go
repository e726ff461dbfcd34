package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMintAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"typical mint address", "4Nd1mYvM6P7FPBmnrVXSjt2usp9mTwwYkFiBidvRv8dv", true},
		{"too short", "4Nd1mYvM6P7", false},
		{"contains zero", "0Nd1mYvM6P7FPBmnrVXSjt2usp9mTwwYkFiBidvRv8dv", false},
		{"contains uppercase O", "ONd1mYvM6P7FPBmnrVXSjt2usp9mTwwYkFiBidvRv8dv", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidMintAddress(tt.input))
		})
	}
}

func TestValidArweaveURL(t *testing.T) {
	txID := "dQw4w9WgXcQdQw4w9WgXcQdQw4w9WgXcQdQw4w9WgXc"

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"canonical", "https://arweave.net/" + txID, true},
		{"gateway subdomain", "https://gw.arweave.net/" + txID, true},
		{"http rejected", "http://arweave.net/" + txID, false},
		{"wrong host", "https://example.com/" + txID, false},
		{"short tx id", "https://arweave.net/abc", false},
		{"not a url", "://", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidArweaveURL(tt.input))
		})
	}
}
