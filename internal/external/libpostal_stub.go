//go:build !cgo

package external

import "github.com/address-audit/app/models"

// ParseFallback is unavailable without cgo; the record keeps only its
// normalized text.
func ParseFallback(_ string) (*models.ParsedAddress, bool) {
	return nil, false
}
