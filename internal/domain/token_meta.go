package domain

import "math/big"

const UnknownTokenValue = "unknown"

// TokenMetadata ERC-20 metadata; Decimals is meaningful only when HasDecimals
type TokenMetadata struct {
	Symbol      string
	Name        string
	Decimals    int32
	HasDecimals bool
	TotalSupply *big.Int
}
