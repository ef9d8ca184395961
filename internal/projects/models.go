package projects

import "time"

// Status is the project lifecycle stage.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
)

// CreditItem is one project's credit issuance. Created in Pending with no
// ledger supply; approval mints the full supply and lists it. IsListed and
// PricePerCredit are maintained by the marketplace once approved.
type CreditItem struct {
	TokenID        uint64    `json:"token_id"`
	InitialOwner   string    `json:"initial_owner"`
	Status         Status    `json:"status"`
	TokenSupply    uint64    `json:"token_supply"`
	PricePerCredit uint64    `json:"price_per_credit"`
	IsListed       bool      `json:"is_listed"`
	MetadataURI    string    `json:"metadata_uri"`
	CreatedAt      time.Time `json:"created_at"`
}
