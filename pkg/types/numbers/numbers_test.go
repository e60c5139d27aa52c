package numbers

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_FormatUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int32
		expected string
	}{
		{"1000000000000000000", 18, "1"},
		{"500000000000000000", 18, "0.5"},
		{"123456789", 6, "123.456789"},
		{"0", 18, "0"},
	}
	for _, test := range tests {
		amount, _ := new(big.Int).SetString(test.amount, 10)
		assert.Equal(t, test.expected, FormatUnits(amount, test.decimals), test.amount)
	}
	assert.Equal(t, "0", FormatUnits(nil, 18))
}

func Test_ParseUnits(t *testing.T) {
	t.Run("Should scale decimal strings", func(t *testing.T) {
		v, err := ParseUnits("0.5", 18)
		assert.Nil(t, err)
		assert.Equal(t, "500000000000000000", v.String())

		v, err = ParseUnits("100", 18)
		assert.Nil(t, err)
		assert.Equal(t, "100000000000000000000", v.String())
	})
	t.Run("Should reject too much precision", func(t *testing.T) {
		_, err := ParseUnits("0.0000001", 6)
		assert.NotNil(t, err)
	})
	t.Run("Should reject garbage", func(t *testing.T) {
		_, err := ParseUnits("ten", 18)
		assert.NotNil(t, err)
	})
}

func Test_ParseBig(t *testing.T) {
	v, err := ParseBig("")
	assert.Nil(t, err)
	assert.Equal(t, int64(0), v.Int64())

	v, err = ParseBig("123456789012345678901234567890")
	assert.Nil(t, err)
	assert.Equal(t, "123456789012345678901234567890", v.String())

	_, err = ParseBig("12a")
	assert.NotNil(t, err)
}

func Test_Proportion(t *testing.T) {
	assert.Equal(t, int64(33), Proportion(big.NewInt(100), big.NewInt(1), big.NewInt(3)).Int64())
	assert.Equal(t, int64(0), Proportion(big.NewInt(100), big.NewInt(1), big.NewInt(0)).Int64())
}
