package marketplace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/accounts"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/payments"
	"carbon-registry/registry-backend/internal/projects"
)

const (
	admin  = "0xadmin"
	seller = "0xseller"
	buyer  = "0xbuyer"
)

func newTestMarket(t *testing.T) (*Service, *projects.Service, *ledger.Ledger, *payments.Vault) {
	t.Helper()
	logger := zap.NewNop()
	acct := accounts.NewRegistry(admin)
	led := ledger.New()
	vault := payments.NewVault()

	proj := projects.NewService(acct, led, led.Authorize("projects"), logger)
	market := NewService(proj, led, led.Authorize("marketplace"), vault, logger)
	proj.SetLister(market)

	_, err := acct.RegisterAccount(admin, "0xaudry", 0, true)
	require.NoError(t, err)
	_, err = acct.RegisterAccount(admin, seller, 1000, false)
	require.NoError(t, err)

	item, err := proj.RegisterProject(seller, 100, "ipfs://meta", 5)
	require.NoError(t, err)
	require.NoError(t, proj.ApproveProject("0xaudry", item.TokenID))
	return market, proj, led, vault
}

func TestBuyRejectsUnlistedToken(t *testing.T) {
	market, proj, _, vault := newTestMarket(t)
	require.NoError(t, vault.Deposit(buyer, 1000))
	require.NoError(t, proj.Delist(1))

	err := market.BuyCredits(buyer, 1, 10, 50)
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestBuyUnknownToken(t *testing.T) {
	market, _, _, _ := newTestMarket(t)
	err := market.BuyCredits(buyer, 99, 1, 5)
	assert.ErrorIs(t, err, projects.ErrNotFound)
}

func TestBuyCostOverflow(t *testing.T) {
	market, proj, _, vault := newTestMarket(t)
	require.NoError(t, vault.Deposit(buyer, 1000))
	require.NoError(t, proj.SetListing(1, math.MaxUint64, true))

	err := market.BuyCredits(buyer, 1, 2, 1000)
	assert.ErrorIs(t, err, ErrCostOverflow)
}

func TestBuySellerVaultOverflowLeavesStateIntact(t *testing.T) {
	market, _, led, vault := newTestMarket(t)
	require.NoError(t, vault.Deposit(seller, math.MaxUint64))
	require.NoError(t, vault.Deposit(buyer, 250))

	err := market.BuyCredits(buyer, 1, 50, 250)
	assert.ErrorIs(t, err, payments.ErrAmountOverflow)

	assert.Zero(t, led.BalanceOf(buyer, 1))
	assert.Equal(t, uint64(100), led.BalanceOf(seller, 1))
	assert.Zero(t, led.TokenSold(1))
	assert.Equal(t, uint64(250), vault.BalanceOf(buyer))
	assert.Equal(t, uint64(math.MaxUint64), vault.BalanceOf(seller))
}

func TestBuyZeroAmount(t *testing.T) {
	market, _, _, vault := newTestMarket(t)
	require.NoError(t, vault.Deposit(buyer, 1000))

	err := market.BuyCredits(buyer, 1, 0, 0)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestListedTokenAccessors(t *testing.T) {
	market, proj, _, _ := newTestMarket(t)

	assert.Equal(t, 1, market.ListedTokensCount())
	assert.Equal(t, []uint64{1}, market.ListedTokens())
	listed := market.AllListedCredits()
	require.Len(t, listed, 1)
	assert.Equal(t, uint64(5), listed[0].PricePerCredit)

	require.NoError(t, proj.Delist(1))
	assert.Zero(t, market.ListedTokensCount())
	assert.Empty(t, market.AllListedCredits())
}

func TestFreeListingSellsAtZeroCost(t *testing.T) {
	market, _, led, vault := newTestMarket(t)
	require.NoError(t, market.ListCreditsForSale(seller, 1, 0))
	require.NoError(t, vault.Deposit(buyer, 10))

	require.NoError(t, market.BuyCredits(buyer, 1, 10, 0))
	assert.Equal(t, uint64(10), led.BalanceOf(buyer, 1))
	assert.Equal(t, uint64(10), vault.BalanceOf(buyer))
}
