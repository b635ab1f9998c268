package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAddressFromString(t *testing.T) {
	t.Run("valid account address", func(t *testing.T) {
		a, err := TryAddressFromString("account_rdx128y6j78mt0aqv6372evz28hrxp8mn06ccddkr7xppc88hyvynvjdwr")
		require.NoError(t, err)
		assert.True(t, a.IsAccount())
		assert.False(t, a.IsResource())
	})

	t.Run("valid resource address", func(t *testing.T) {
		a, err := TryAddressFromString("resource_rdx1tknxxxxxxxxxradxrdxxxxxxxxx009923554798xxxxxxxxxradxrd")
		require.NoError(t, err)
		assert.True(t, a.IsResource())
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := TryAddressFromString("account_rdx")
		assert.Error(t, err)
	})

	t.Run("char outside charset", func(t *testing.T) {
		// 'b' 不在 bech32 字符集中
		_, err := TryAddressFromString("account_rdx1bbbbbbbb")
		assert.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := TryAddressFromString("")
		assert.Error(t, err)
	})
}

func TestAddressesRoundTrip(t *testing.T) {
	strs := []string{
		"account_rdx128y6j78mt0aqv6372evz28hrxp8mn06ccddkr7xppc88hyvynvjdwr",
		"validator_rdx1sd5368vqdmjk0y2w7ymdts02cz9c52858gpyny56xdvzuheepuhqf0",
	}
	addrs, err := AddressesFromStrings(strs)
	require.NoError(t, err)
	assert.Equal(t, strs, AddressStrings(addrs))
	assert.True(t, addrs[1].IsValidator())
}
