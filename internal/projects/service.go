package projects

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/accounts"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/pkg/workflows"
)

var (
	ErrInvalidAuditor     = errors.New("caller is not an auditor")
	ErrInvalidState       = errors.New("project is not in a state allowing this transition")
	ErrNotFound           = errors.New("project not found")
	ErrNotRegistered      = errors.New("caller has no registered account")
	ErrTokenSupplyInvalid = errors.New("token supply exceeds the account credit ceiling")
)

// Lister is the marketplace hook invoked when an approved project's supply
// is auto-listed.
type Lister interface {
	AutoList(tokenID, pricePerCredit uint64)
}

// Service runs the project lifecycle: registration in Pending, then exactly
// one auditor approval (mint + list) or decline. Not safe for concurrent use
// on its own; the owning registry serializes.
type Service struct {
	accounts *accounts.Registry
	ledger   *ledger.Ledger
	caller   ledger.Caller
	lister   Lister
	machine  *workflows.StateMachine
	logger   *zap.Logger

	items       map[uint64]*CreditItem
	order       []uint64
	nextTokenID uint64
}

func NewService(acct *accounts.Registry, led *ledger.Ledger, caller ledger.Caller, logger *zap.Logger) *Service {
	return &Service{
		accounts:    acct,
		ledger:      led,
		caller:      caller,
		machine:     workflows.NewStateMachine(),
		logger:      logger,
		items:       make(map[uint64]*CreditItem),
		nextTokenID: 1,
	}
}

// SetLister wires the marketplace after construction; the two components
// reference each other.
func (s *Service) SetLister(l Lister) {
	s.lister = l
}

// RegisterProject creates a Pending credit item. The declared supply may not
// exceed the caller's account credit ceiling.
func (s *Service) RegisterProject(caller string, tokenSupply uint64, metadataURI string, pricePerCredit uint64) (*CreditItem, error) {
	acct, err := s.accounts.GetAccountByAddress(caller)
	if err != nil {
		return nil, fmt.Errorf("register project by %s: %w", caller, ErrNotRegistered)
	}
	if tokenSupply == 0 || tokenSupply > acct.TotalCredits {
		return nil, fmt.Errorf("register project by %s with supply %d (ceiling %d): %w",
			caller, tokenSupply, acct.TotalCredits, ErrTokenSupplyInvalid)
	}
	item := &CreditItem{
		TokenID:        s.nextTokenID,
		InitialOwner:   caller,
		Status:         StatusPending,
		TokenSupply:    tokenSupply,
		PricePerCredit: pricePerCredit,
		MetadataURI:    metadataURI,
		CreatedAt:      time.Now().UTC(),
	}
	s.nextTokenID++
	s.items[item.TokenID] = item
	s.order = append(s.order, item.TokenID)
	s.logger.Info("project registered",
		zap.Uint64("token_id", item.TokenID),
		zap.String("owner", caller),
		zap.Uint64("supply", tokenSupply))
	cp := *item
	return &cp, nil
}

// ApproveProject moves a Pending project to Approved, mints its full supply
// to the initial owner and auto-lists it at the registered price.
func (s *Service) ApproveProject(caller string, tokenID uint64) error {
	item, err := s.transitionTarget(caller, tokenID, StatusApproved)
	if err != nil {
		return err
	}
	if err := s.ledger.Mint(s.caller, tokenID, item.InitialOwner, item.TokenSupply, item.MetadataURI); err != nil {
		return fmt.Errorf("approve project %d: %w", tokenID, err)
	}
	item.Status = StatusApproved
	if s.lister != nil {
		s.lister.AutoList(tokenID, item.PricePerCredit)
	}
	s.logger.Info("project approved",
		zap.Uint64("token_id", tokenID),
		zap.String("auditor", caller),
		zap.Uint64("minted", item.TokenSupply))
	return nil
}

// DeclineProject moves a Pending project to Declined. Terminal and inert: no
// ledger effect, ever.
func (s *Service) DeclineProject(caller string, tokenID uint64) error {
	item, err := s.transitionTarget(caller, tokenID, StatusDeclined)
	if err != nil {
		return err
	}
	item.Status = StatusDeclined
	s.logger.Info("project declined",
		zap.Uint64("token_id", tokenID),
		zap.String("auditor", caller))
	return nil
}

func (s *Service) transitionTarget(caller string, tokenID uint64, to Status) (*CreditItem, error) {
	if !s.accounts.IsAuditor(caller) {
		return nil, fmt.Errorf("project %d transition by %s: %w", tokenID, caller, ErrInvalidAuditor)
	}
	item, ok := s.items[tokenID]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", tokenID, ErrNotFound)
	}
	if !s.machine.CanTransition(string(item.Status), string(to)) {
		return nil, fmt.Errorf("project %d is %s: %w", tokenID, item.Status, ErrInvalidState)
	}
	return item, nil
}

// Item returns a copy of one credit item.
func (s *Service) Item(tokenID uint64) (*CreditItem, error) {
	item, ok := s.items[tokenID]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", tokenID, ErrNotFound)
	}
	cp := *item
	return &cp, nil
}

// Items returns copies of every credit item in registration order.
func (s *Service) Items() []CreditItem {
	out := make([]CreditItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// SetListing updates the marketplace-owned listing fields of an item.
func (s *Service) SetListing(tokenID, pricePerCredit uint64, listed bool) error {
	item, ok := s.items[tokenID]
	if !ok {
		return fmt.Errorf("project %d: %w", tokenID, ErrNotFound)
	}
	item.PricePerCredit = pricePerCredit
	item.IsListed = listed
	return nil
}

// Delist clears only the active flag, keeping the last price.
func (s *Service) Delist(tokenID uint64) error {
	item, ok := s.items[tokenID]
	if !ok {
		return fmt.Errorf("project %d: %w", tokenID, ErrNotFound)
	}
	item.IsListed = false
	return nil
}
