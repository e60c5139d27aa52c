package utils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func Test_ParseAddress(t *testing.T) {
	t.Run("Should parse a checksummed address", func(t *testing.T) {
		a, err := ParseAddress(" 0x52908400098527886E0F7030069857D2E4169EE7 ")
		assert.Nil(t, err)
		assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", AddressKey(a))
	})
	t.Run("Should reject malformed input", func(t *testing.T) {
		_, err := ParseAddress("0x1234")
		assert.NotNil(t, err)

		_, err = ParseAddresses([]string{"0x52908400098527886E0F7030069857D2E4169EE7", "nope"})
		assert.NotNil(t, err)
	})
	t.Run("Should detect the null address", func(t *testing.T) {
		assert.True(t, IsZeroAddress(common.HexToAddress(NullEthereumAddressHex)))
		assert.False(t, IsZeroAddress(common.HexToAddress("0x01")))
	})
}

func Test_MapFilter(t *testing.T) {
	doubled := Map([]int{1, 2, 3}, func(v int, i uint64) int { return v * 2 })
	assert.Equal(t, []int{2, 4, 6}, doubled)

	odd := Filter([]int{1, 2, 3}, func(v int) bool { return v%2 == 1 })
	assert.Equal(t, []int{1, 3}, odd)
}
