package utils

import (
	"encoding/json"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/shopspring/decimal"

	"github.com/vitwit/ampkernel/types"
)

// ValidateJSON validates that a payload is valid JSON
func ValidateJSON(data []byte) error {
	var js json.RawMessage
	return json.Unmarshal(data, &js)
}

// CoinValue converts a coin amount to a float for gauges and histograms.
// Precision beyond float64 is dropped.
func CoinValue(c sdk.Coin) float64 {
	if c.Amount.IsNil() {
		return 0
	}
	f, _ := decimal.NewFromBigInt(c.Amount.BigInt(), 0).Float64()
	return f
}

// SingleCoin returns the only coin in funds. Remote funded sends carry
// exactly one denomination.
func SingleCoin(funds sdk.Coins) (sdk.Coin, error) {
	if len(funds) != 1 {
		return sdk.Coin{}, types.InvalidPacket(fmt.Sprintf("cross-chain funds must be a single coin, got %d", len(funds)))
	}
	c := funds[0]
	if c.Amount.IsNil() || c.IsZero() {
		return sdk.Coin{}, types.InvalidZeroAmount()
	}
	return c, nil
}
