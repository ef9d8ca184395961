package marketplace

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/payments"
	"carbon-registry/registry-backend/internal/projects"
	"carbon-registry/registry-backend/internal/retirement"
)

var (
	ErrNotHolder           = errors.New("caller holds no balance of this token")
	ErrNotListed           = errors.New("token is not listed for sale")
	ErrInsufficientBalance = errors.New("insufficient balance to purchase")
	ErrInsufficientFunds   = errors.New("insufficient funds to purchase")
	ErrCostOverflow        = errors.New("purchase cost overflows")
)

// Retirer lets deployments keep the marketplace-facing retire alias; it is
// functionally identical to calling the retirement registry directly.
type Retirer interface {
	RetireCredits(caller string, tokenID, amount uint64, certificateURI string) (*retirement.Retirement, error)
}

// Service owns the listing flags and the buy settlement algorithm. Listing
// state lives on the credit item; the ledger holds balances and the sold
// counter; the vault moves the money. Not safe for concurrent use on its
// own; the owning registry serializes.
type Service struct {
	projects *projects.Service
	ledger   *ledger.Ledger
	caller   ledger.Caller
	vault    *payments.Vault
	retirer  Retirer
	logger   *zap.Logger
}

func NewService(proj *projects.Service, led *ledger.Ledger, caller ledger.Caller, vault *payments.Vault, logger *zap.Logger) *Service {
	return &Service{
		projects: proj,
		ledger:   led,
		caller:   caller,
		vault:    vault,
		logger:   logger,
	}
}

func (s *Service) SetRetirer(r Retirer) {
	s.retirer = r
}

// AutoList is invoked by the project registry when approval mints supply.
func (s *Service) AutoList(tokenID, pricePerCredit uint64) {
	if err := s.projects.SetListing(tokenID, pricePerCredit, true); err != nil {
		s.logger.Error("auto-list failed", zap.Uint64("token_id", tokenID), zap.Error(err))
	}
}

// ListCreditsForSale activates (or re-prices) a listing. Re-listing an
// already listed token simply overwrites the price.
func (s *Service) ListCreditsForSale(caller string, tokenID, pricePerCredit uint64) error {
	if _, err := s.projects.Item(tokenID); err != nil {
		return err
	}
	if s.ledger.BalanceOf(caller, tokenID) == 0 {
		return fmt.Errorf("list token %d by %s: %w", tokenID, caller, ErrNotHolder)
	}
	if err := s.projects.SetListing(tokenID, pricePerCredit, true); err != nil {
		return err
	}
	s.logger.Info("credits listed",
		zap.Uint64("token_id", tokenID),
		zap.String("seller", caller),
		zap.Uint64("price", pricePerCredit))
	return nil
}

// BuyCredits settles a purchase: ledger transfer, sold counter, exact-cost
// forward to the seller and refund of any excess to the buyer. Every leg,
// including the seller's vault headroom, is validated before the first
// mutation, so a failure leaves no partial state.
func (s *Service) BuyCredits(buyer string, tokenID, amount, paidValue uint64) error {
	item, err := s.projects.Item(tokenID)
	if err != nil {
		return err
	}
	if !item.IsListed {
		return fmt.Errorf("buy token %d: %w", tokenID, ErrNotListed)
	}
	seller := item.InitialOwner
	sellerBalance := s.ledger.BalanceOf(seller, tokenID)
	if amount == 0 || amount > sellerBalance {
		return fmt.Errorf("buy %d of token %d (seller holds %d): %w", amount, tokenID, sellerBalance, ErrInsufficientBalance)
	}
	if item.PricePerCredit != 0 && amount > math.MaxUint64/item.PricePerCredit {
		return fmt.Errorf("buy %d of token %d at %d: %w", amount, tokenID, item.PricePerCredit, ErrCostOverflow)
	}
	cost := amount * item.PricePerCredit
	if paidValue < cost {
		return fmt.Errorf("buy %d of token %d costs %d, paid %d: %w", amount, tokenID, cost, paidValue, ErrInsufficientFunds)
	}
	if s.vault.BalanceOf(buyer) < paidValue {
		return fmt.Errorf("buy %d of token %d, escrow short of %d: %w", amount, tokenID, paidValue, ErrInsufficientFunds)
	}
	if s.vault.BalanceOf(seller) > math.MaxUint64-cost {
		return fmt.Errorf("buy %d of token %d, seller vault cannot absorb %d: %w", amount, tokenID, cost, payments.ErrAmountOverflow)
	}

	// All legs validated; nothing below may fail.
	if err := s.ledger.Transfer(s.caller, tokenID, seller, buyer, amount); err != nil {
		return fmt.Errorf("buy %d of token %d: %w", amount, tokenID, err)
	}
	if err := s.ledger.SetTokenSold(s.caller, tokenID, s.ledger.TokenSold(tokenID)+amount); err != nil {
		// Roll the transfer back; the pre-checks make this unreachable.
		_ = s.ledger.Transfer(s.caller, tokenID, buyer, seller, amount)
		return fmt.Errorf("buy %d of token %d: %w", amount, tokenID, err)
	}
	if err := s.vault.Debit(buyer, cost); err != nil {
		_ = s.ledger.SetTokenSold(s.caller, tokenID, s.ledger.TokenSold(tokenID)-amount)
		_ = s.ledger.Transfer(s.caller, tokenID, buyer, seller, amount)
		return fmt.Errorf("buy %d of token %d: %w", amount, tokenID, err)
	}
	if err := s.vault.Credit(seller, cost); err != nil {
		_ = s.vault.Credit(buyer, cost)
		_ = s.ledger.SetTokenSold(s.caller, tokenID, s.ledger.TokenSold(tokenID)-amount)
		_ = s.ledger.Transfer(s.caller, tokenID, buyer, seller, amount)
		return fmt.Errorf("buy %d of token %d: %w", amount, tokenID, err)
	}

	remaining := s.ledger.BalanceOf(seller, tokenID)
	if remaining == 0 {
		_ = s.projects.Delist(tokenID)
	}
	s.logger.Info("credits purchased",
		zap.Uint64("token_id", tokenID),
		zap.String("buyer", buyer),
		zap.String("seller", seller),
		zap.Uint64("amount", amount),
		zap.Uint64("cost", cost),
		zap.Uint64("seller_remaining", remaining))
	return nil
}

// RetireCredits is the marketplace-facing alias for retirement.
func (s *Service) RetireCredits(caller string, tokenID, amount uint64, certificateURI string) (*retirement.Retirement, error) {
	return s.retirer.RetireCredits(caller, tokenID, amount, certificateURI)
}

// ListedTokens returns the token ids with an active listing, in project
// registration order.
func (s *Service) ListedTokens() []uint64 {
	var out []uint64
	for _, item := range s.projects.Items() {
		if item.IsListed {
			out = append(out, item.TokenID)
		}
	}
	return out
}

func (s *Service) ListedTokensCount() int {
	return len(s.ListedTokens())
}

// AllListedCredits returns the credit items with an active listing.
func (s *Service) AllListedCredits() []projects.CreditItem {
	var out []projects.CreditItem
	for _, item := range s.projects.Items() {
		if item.IsListed {
			out = append(out, item)
		}
	}
	return out
}
