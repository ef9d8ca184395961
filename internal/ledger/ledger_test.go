package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintRequiresAuthorizedCaller(t *testing.T) {
	l := New()

	err := l.Mint(Caller{}, 1, "0xalice", 100, "ipfs://meta")
	assert.ErrorIs(t, err, ErrUnauthorized)

	foreign := &callerID{name: "stranger"}
	err = l.Mint(Caller{id: foreign}, 1, "0xalice", 100, "ipfs://meta")
	assert.ErrorIs(t, err, ErrUnauthorized)

	c := l.Authorize("projects")
	require.NoError(t, l.Mint(c, 1, "0xalice", 100, "ipfs://meta"))
	assert.Equal(t, uint64(100), l.BalanceOf("0xalice", 1))
}

func TestMintRejectsExistingSupply(t *testing.T) {
	l := New()
	c := l.Authorize("projects")

	require.NoError(t, l.Mint(c, 7, "0xalice", 50, ""))
	err := l.Mint(c, 7, "0xbob", 50, "")
	assert.ErrorIs(t, err, ErrTokenExists)
}

func TestTransferMaintainsBalancesAndIndices(t *testing.T) {
	l := New()
	c := l.Authorize("marketplace")
	require.NoError(t, l.Mint(c, 1, "0xalice", 100, ""))

	require.NoError(t, l.Transfer(c, 1, "0xalice", "0xbob", 40))
	assert.Equal(t, uint64(60), l.BalanceOf("0xalice", 1))
	assert.Equal(t, uint64(40), l.BalanceOf("0xbob", 1))
	assert.ElementsMatch(t, []string{"0xalice", "0xbob"}, l.TokenOwners(1))
	assert.Equal(t, []uint64{1}, l.OwnedTokens("0xbob"))

	// Draining the sender removes it from every index.
	require.NoError(t, l.Transfer(c, 1, "0xalice", "0xbob", 60))
	assert.Equal(t, uint64(0), l.BalanceOf("0xalice", 1))
	assert.ElementsMatch(t, []string{"0xbob"}, l.TokenOwners(1))
	assert.Equal(t, 0, l.OwnedTokensCount("0xalice"))
	assert.Equal(t, uint64(100), l.TokenSupply(1))
}

func TestTransferInsufficientBalance(t *testing.T) {
	l := New()
	c := l.Authorize("marketplace")
	require.NoError(t, l.Mint(c, 1, "0xalice", 10, ""))

	err := l.Transfer(c, 1, "0xalice", "0xbob", 11)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(10), l.BalanceOf("0xalice", 1))
	assert.Equal(t, 1, l.OwnerCount(1))
}

func TestBalanceConservation(t *testing.T) {
	l := New()
	c := l.Authorize("marketplace")
	require.NoError(t, l.Mint(c, 1, "0xalice", 1000, ""))

	require.NoError(t, l.Transfer(c, 1, "0xalice", "0xbob", 300))
	require.NoError(t, l.Transfer(c, 1, "0xbob", "0xcarol", 120))
	require.NoError(t, l.Transfer(c, 1, "0xalice", "0xcarol", 80))
	require.NoError(t, l.Burn(c, 1, "0xcarol", 50))

	var sum uint64
	for _, owner := range l.TokenOwners(1) {
		sum += l.BalanceOf(owner, 1)
	}
	assert.Equal(t, l.TokenSupply(1), sum)
	assert.Equal(t, uint64(950), sum)
}

func TestOwnerSetAccuracy(t *testing.T) {
	l := New()
	c := l.Authorize("marketplace")
	require.NoError(t, l.Mint(c, 1, "0xalice", 100, ""))
	require.NoError(t, l.Transfer(c, 1, "0xalice", "0xbob", 100))

	for _, owner := range l.TokenOwners(1) {
		assert.Positive(t, l.BalanceOf(owner, 1))
	}
	assert.NotContains(t, l.TokenOwners(1), "0xalice")
}

func TestBurnRemovesExhaustedToken(t *testing.T) {
	l := New()
	c := l.Authorize("retirement")
	require.NoError(t, l.Mint(c, 1, "0xalice", 100, ""))
	require.NoError(t, l.Mint(c, 2, "0xbob", 40, ""))
	assert.Equal(t, 2, l.TotalTokensCount())

	require.NoError(t, l.Burn(c, 1, "0xalice", 100))
	assert.Equal(t, uint64(0), l.TokenSupply(1))
	assert.Equal(t, 1, l.TotalTokensCount())
	assert.Empty(t, l.TokenOwners(1))
	assert.NotContains(t, l.AllTokens(), uint64(1))

	// Token 2 survives the swap-and-pop removal of token 1.
	id, err := l.TokenByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestBurnInsufficientBalance(t *testing.T) {
	l := New()
	c := l.Authorize("retirement")
	require.NoError(t, l.Mint(c, 1, "0xalice", 10, ""))

	err := l.Burn(c, 1, "0xbob", 1)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	err = l.Burn(c, 1, "0xalice", 11)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestEnumerationBounds(t *testing.T) {
	l := New()
	c := l.Authorize("projects")
	require.NoError(t, l.Mint(c, 1, "0xalice", 10, ""))

	_, err := l.TokenByIndex(1)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
	_, err = l.TokenByIndex(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)

	_, err = l.OwnerTokenByIndex("0xalice", 1)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
	_, err = l.OwnerTokenByIndex("0xnobody", 0)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)

	id, err := l.OwnerTokenByIndex("0xalice", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

func TestOwnedTokenSwapAndPop(t *testing.T) {
	l := New()
	c := l.Authorize("marketplace")
	require.NoError(t, l.Mint(c, 1, "0xalice", 10, ""))
	require.NoError(t, l.Mint(c, 2, "0xalice", 10, ""))
	require.NoError(t, l.Mint(c, 3, "0xalice", 10, ""))
	assert.Equal(t, 3, l.OwnedTokensCount("0xalice"))

	// Dropping the middle token keeps the remaining two enumerable.
	require.NoError(t, l.Transfer(c, 2, "0xalice", "0xbob", 10))
	assert.Equal(t, 2, l.OwnedTokensCount("0xalice"))
	assert.ElementsMatch(t, []uint64{1, 3}, l.OwnedTokens("0xalice"))
	assert.Equal(t, []uint64{2}, l.OwnedTokens("0xbob"))
}

func TestSoldBookkeeping(t *testing.T) {
	l := New()
	c := l.Authorize("marketplace")
	require.NoError(t, l.Mint(c, 1, "0xalice", 100, ""))

	require.NoError(t, l.SetTokenSold(c, 1, 25))
	assert.Equal(t, uint64(25), l.TokenSold(1))

	err := l.SetTokenSold(c, 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
