package retirement

import "time"

// Retirement is a non-fungible certificate proving that a specific amount of
// a specific token id was permanently burned by a specific owner. Records
// are never deleted.
type Retirement struct {
	ID             uint64    `json:"id"`
	TokenID        uint64    `json:"token_id"`
	Owner          string    `json:"owner"`
	Amount         uint64    `json:"amount"`
	RetiredAt      time.Time `json:"retired_at"`
	CertificateURI string    `json:"certificate_uri"`
	IsCertificated bool      `json:"is_certificated"`
	Serial         string    `json:"serial"`
}
