package retirement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/accounts"
	"carbon-registry/registry-backend/internal/ledger"
)

var (
	ErrInvalidAuditor   = errors.New("caller is not an auditor")
	ErrNotFound         = errors.New("retirement not found")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// ComponentAddress identifies the marketplace/retirement component on the
// account registry's authorized-contract allow list.
const ComponentAddress = "registry:settlement"

// Service burns ledger balance in exchange for sequential retirement
// certificates and lets auditors certify them. The retiring party always
// eats their own counters: totalCredits down, totalRetired up, on whichever
// address calls, seller or buyer alike. Not safe for concurrent use on its
// own; the owning registry serializes.
type Service struct {
	accounts *accounts.Registry
	ledger   *ledger.Ledger
	caller   ledger.Caller
	logger   *zap.Logger

	records map[uint64]*Retirement
	all     []uint64
	owned   map[string][]uint64
	nextID  uint64
}

func NewService(acct *accounts.Registry, led *ledger.Ledger, caller ledger.Caller, logger *zap.Logger) *Service {
	return &Service{
		accounts: acct,
		ledger:   led,
		caller:   caller,
		logger:   logger,
		records:  make(map[uint64]*Retirement),
		owned:    make(map[string][]uint64),
		nextID:   1,
	}
}

// RetireCredits burns amount from the caller's balance, adjusts the caller's
// account counters and issues the next sequential certificate. Counter
// underflow is checked up front so a failure leaves no partial state.
func (s *Service) RetireCredits(caller string, tokenID, amount uint64, certificateURI string) (*Retirement, error) {
	if s.ledger.BalanceOf(caller, tokenID) < amount || amount == 0 {
		return nil, fmt.Errorf("retire %d of token %d by %s: %w", amount, tokenID, caller, ledger.ErrInsufficientBalance)
	}
	acct, err := s.accounts.GetAccountByAddress(caller)
	if err != nil {
		return nil, fmt.Errorf("retire %d of token %d: %w", amount, tokenID, err)
	}
	if acct.TotalCredits < amount {
		return nil, fmt.Errorf("retire %d of token %d by %s (counter %d): %w",
			amount, tokenID, caller, acct.TotalCredits, accounts.ErrUnderflow)
	}

	if err := s.ledger.Burn(s.caller, tokenID, caller, amount); err != nil {
		return nil, fmt.Errorf("retire %d of token %d: %w", amount, tokenID, err)
	}
	if err := s.accounts.AdjustCredits(ComponentAddress, caller, -int64(amount)); err != nil {
		return nil, fmt.Errorf("retire %d of token %d: %w", amount, tokenID, err)
	}
	if err := s.accounts.AdjustRetired(ComponentAddress, caller, int64(amount)); err != nil {
		return nil, fmt.Errorf("retire %d of token %d: %w", amount, tokenID, err)
	}

	rec := &Retirement{
		ID:             s.nextID,
		TokenID:        tokenID,
		Owner:          caller,
		Amount:         amount,
		RetiredAt:      time.Now().UTC(),
		CertificateURI: certificateURI,
		Serial:         uuid.New().String(),
	}
	s.nextID++
	s.records[rec.ID] = rec
	s.all = append(s.all, rec.ID)
	s.owned[caller] = append(s.owned[caller], rec.ID)
	s.logger.Info("credits retired",
		zap.Uint64("retirement_id", rec.ID),
		zap.Uint64("token_id", tokenID),
		zap.String("owner", caller),
		zap.Uint64("amount", amount))
	cp := *rec
	return &cp, nil
}

// CertificateRetirement flips the certification flag and replaces the URI.
// Re-certifying overwrites the URI again without error.
func (s *Service) CertificateRetirement(caller string, retirementID uint64, newURI string) error {
	if !s.accounts.IsAuditor(caller) {
		return fmt.Errorf("certify retirement %d by %s: %w", retirementID, caller, ErrInvalidAuditor)
	}
	rec, ok := s.records[retirementID]
	if !ok {
		return fmt.Errorf("retirement %d: %w", retirementID, ErrNotFound)
	}
	rec.IsCertificated = true
	rec.CertificateURI = newURI
	s.logger.Info("retirement certificated",
		zap.Uint64("retirement_id", retirementID),
		zap.String("auditor", caller))
	return nil
}

func (s *Service) TotalSupply() int {
	return len(s.all)
}

func (s *Service) TokenByIndex(i int) (*Retirement, error) {
	if i < 0 || i >= len(s.all) {
		return nil, fmt.Errorf("retirement index %d of %d: %w", i, len(s.all), ErrIndexOutOfBounds)
	}
	cp := *s.records[s.all[i]]
	return &cp, nil
}

func (s *Service) TokenOfOwnerByIndex(owner string, i int) (*Retirement, error) {
	ids := s.owned[owner]
	if i < 0 || i >= len(ids) {
		return nil, fmt.Errorf("retirement index %d of %d for %s: %w", i, len(ids), owner, ErrIndexOutOfBounds)
	}
	cp := *s.records[ids[i]]
	return &cp, nil
}

func (s *Service) Get(retirementID uint64) (*Retirement, error) {
	rec, ok := s.records[retirementID]
	if !ok {
		return nil, fmt.Errorf("retirement %d: %w", retirementID, ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *Service) GetAllRetirements() []Retirement {
	out := make([]Retirement, 0, len(s.all))
	for _, id := range s.all {
		out = append(out, *s.records[id])
	}
	return out
}

func (s *Service) GetOwnedRetirements(owner string) []Retirement {
	ids := s.owned[owner]
	out := make([]Retirement, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.records[id])
	}
	return out
}
