// Package blockchain performs format checks on on-chain certificate
// references. Addresses are never dereferenced; the checks are cosmetic and
// feed the certificate record only.
package blockchain

import (
	"net/url"
	"regexp"
	"strings"
)

// Solana addresses are base58-encoded 32-byte keys, 32 to 44 characters.
var solanaAddressRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Arweave transaction IDs are 43-character base64url strings.
var arweaveTxRe = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// ValidMintAddress reports whether s looks like a Solana mint address.
func ValidMintAddress(s string) bool {
	return solanaAddressRe.MatchString(s)
}

// ValidArweaveURL reports whether s is an arweave.net URL whose path is a
// well-formed transaction ID.
func ValidArweaveURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "https" {
		return false
	}
	if u.Host != "arweave.net" && !strings.HasSuffix(u.Host, ".arweave.net") {
		return false
	}
	txID := strings.TrimPrefix(u.Path, "/")
	return arweaveTxRe.MatchString(txID)
}
