package domain

import (
	"fmt"
	"math/big"
)

type EventKind string

const (
	KindPoolCreated EventKind = "PoolCreated"
	KindInitialize  EventKind = "Initialize"
	KindMint        EventKind = "Mint"
	KindBurn        EventKind = "Burn"
	KindCollect     EventKind = "Collect"
	KindSwap        EventKind = "Swap"
)

// Decoded contract event as handed over by the delivery subsystem.
// Addresses and hashes are lower-case 0x strings
type Event struct {
	ChainID         uint64    `json:"chain_id"`
	SrcAddress      string    `json:"src_address"`
	BlockNumber     uint64    `json:"block_number"`
	BlockTimestamp  int64     `json:"block_timestamp"` // unix seconds
	TransactionHash string    `json:"transaction_hash"`
	TransactionFrom string    `json:"transaction_from"`
	LogIndex        uint32    `json:"log_index"`
	Kind            EventKind `json:"kind"`
	Params          Params    `json:"-"`
}

// ID unique record id of the event inside its chain
func (e *Event) ID() string {
	return MakeRecordID(e.TransactionHash, e.LogIndex)
}

// Position of the event inside its chain, used for ordering checks
func (e *Event) Position() Position {
	return Position{Block: e.BlockNumber, LogIndex: e.LogIndex}
}

func (e *Event) String() string {
	return fmt.Sprintf("%s chain=%d block=%d tx=%s log=%d", e.Kind, e.ChainID, e.BlockNumber, e.TransactionHash, e.LogIndex)
}

// Params event-specific payload
type Params interface {
	Kind() EventKind
}

type PoolCreatedParams struct {
	Token0 string
	Token1 string
	Fee    *big.Int
	Pool   string
}

type InitializeParams struct {
	SqrtPriceX96 *big.Int
	Tick         int64
}

type MintParams struct {
	Sender    string
	Owner     string
	TickLower int64
	TickUpper int64
	Amount    *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

type BurnParams struct {
	Owner     string
	TickLower int64
	TickUpper int64
	Amount    *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

type CollectParams struct {
	Owner     string
	Recipient string
	TickLower int64
	TickUpper int64
	Amount0   *big.Int
	Amount1   *big.Int
}

type SwapParams struct {
	Sender       string
	Recipient    string
	Amount0      *big.Int // signed, pool perspective
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int64
}

func (PoolCreatedParams) Kind() EventKind { return KindPoolCreated }
func (InitializeParams) Kind() EventKind  { return KindInitialize }
func (MintParams) Kind() EventKind        { return KindMint }
func (BurnParams) Kind() EventKind        { return KindBurn }
func (CollectParams) Kind() EventKind     { return KindCollect }
func (SwapParams) Kind() EventKind        { return KindSwap }

// Position (block, logIndex) pair; events of one chain are applied in increasing order
type Position struct {
	Block    uint64 `json:"block"`
	LogIndex uint32 `json:"log_index"`
}

// After reports whether p strictly follows o
func (p Position) After(o Position) bool {
	if p.Block != o.Block {
		return p.Block > o.Block
	}
	return p.LogIndex > o.LogIndex
}
