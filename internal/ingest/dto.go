package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"dexstats/internal/domain"
	"dexstats/internal/mathutil"
)

var ErrMalformedEvent = errors.New("malformed event")

// EventDTO wire form of a decoded contract event. Integers that may exceed 64 bits
// travel as base-10 strings
type EventDTO struct {
	ChainID         uint64          `json:"chain_id"`
	SrcAddress      string          `json:"src_address"`
	BlockNumber     uint64          `json:"block_number"`
	BlockTimestamp  int64           `json:"block_timestamp"`
	TransactionHash string          `json:"transaction_hash"`
	TransactionFrom string          `json:"transaction_from"`
	LogIndex        uint32          `json:"log_index"`
	Kind            string          `json:"kind"`
	Params          json.RawMessage `json:"params"`
}

type poolCreatedDTO struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Fee    string `json:"fee"`
	Pool   string `json:"pool"`
}

type initializeDTO struct {
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Tick         int64  `json:"tick"`
}

type mintDTO struct {
	Sender    string `json:"sender"`
	Owner     string `json:"owner"`
	TickLower int64  `json:"tick_lower"`
	TickUpper int64  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

type burnDTO struct {
	Owner     string `json:"owner"`
	TickLower int64  `json:"tick_lower"`
	TickUpper int64  `json:"tick_upper"`
	Amount    string `json:"amount"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

type collectDTO struct {
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	TickLower int64  `json:"tick_lower"`
	TickUpper int64  `json:"tick_upper"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
}

type swapDTO struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int64  `json:"tick"`
}

// Decode parses one wire message into a domain event
func Decode(data []byte) (*domain.Event, error) {
	var dto EventDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return dto.ToModel()
}

// ToModel validates addresses and amounts and lower-cases every hex string
func (dto *EventDTO) ToModel() (*domain.Event, error) {
	p := parser{}

	ev := &domain.Event{
		ChainID:         dto.ChainID,
		SrcAddress:      p.address("src_address", dto.SrcAddress),
		BlockNumber:     dto.BlockNumber,
		BlockTimestamp:  dto.BlockTimestamp,
		TransactionHash: p.hash("transaction_hash", dto.TransactionHash),
		TransactionFrom: p.address("transaction_from", dto.TransactionFrom),
		LogIndex:        dto.LogIndex,
		Kind:            domain.EventKind(dto.Kind),
	}
	if dto.ChainID == 0 {
		p.fail("chain_id", "is required")
	}

	switch ev.Kind {
	case domain.KindPoolCreated:
		var w poolCreatedDTO
		p.params(dto.Params, &w)
		ev.Params = domain.PoolCreatedParams{
			Token0: p.address("token0", w.Token0),
			Token1: p.address("token1", w.Token1),
			Fee:    p.big("fee", w.Fee),
			Pool:   p.address("pool", w.Pool),
		}
	case domain.KindInitialize:
		var w initializeDTO
		p.params(dto.Params, &w)
		ev.Params = domain.InitializeParams{
			SqrtPriceX96: p.big("sqrt_price_x96", w.SqrtPriceX96),
			Tick:         p.tick("tick", w.Tick),
		}
	case domain.KindMint:
		var w mintDTO
		p.params(dto.Params, &w)
		ev.Params = domain.MintParams{
			Sender:    p.address("sender", w.Sender),
			Owner:     p.address("owner", w.Owner),
			TickLower: w.TickLower,
			TickUpper: p.tickRange(w.TickLower, w.TickUpper),
			Amount:    p.big("amount", w.Amount),
			Amount0:   p.big("amount0", w.Amount0),
			Amount1:   p.big("amount1", w.Amount1),
		}
	case domain.KindBurn:
		var w burnDTO
		p.params(dto.Params, &w)
		ev.Params = domain.BurnParams{
			Owner:     p.address("owner", w.Owner),
			TickLower: w.TickLower,
			TickUpper: p.tickRange(w.TickLower, w.TickUpper),
			Amount:    p.big("amount", w.Amount),
			Amount0:   p.big("amount0", w.Amount0),
			Amount1:   p.big("amount1", w.Amount1),
		}
	case domain.KindCollect:
		var w collectDTO
		p.params(dto.Params, &w)
		ev.Params = domain.CollectParams{
			Owner:     p.address("owner", w.Owner),
			Recipient: p.address("recipient", w.Recipient),
			TickLower: w.TickLower,
			TickUpper: p.tickRange(w.TickLower, w.TickUpper),
			Amount0:   p.big("amount0", w.Amount0),
			Amount1:   p.big("amount1", w.Amount1),
		}
	case domain.KindSwap:
		var w swapDTO
		p.params(dto.Params, &w)
		ev.Params = domain.SwapParams{
			Sender:       p.address("sender", w.Sender),
			Recipient:    p.address("recipient", w.Recipient),
			Amount0:      p.big("amount0", w.Amount0),
			Amount1:      p.big("amount1", w.Amount1),
			SqrtPriceX96: p.big("sqrt_price_x96", w.SqrtPriceX96),
			Liquidity:    p.big("liquidity", w.Liquidity),
			Tick:         p.tick("tick", w.Tick),
		}
	default:
		p.fail("kind", fmt.Sprintf("unknown %q", dto.Kind))
	}

	if p.err != nil {
		return nil, p.err
	}
	return ev, nil
}

// FromModel wire form of ev, the inverse of ToModel
func FromModel(ev *domain.Event) (*EventDTO, error) {
	var params any
	switch p := ev.Params.(type) {
	case domain.PoolCreatedParams:
		params = poolCreatedDTO{Token0: p.Token0, Token1: p.Token1, Fee: bigString(p.Fee), Pool: p.Pool}
	case domain.InitializeParams:
		params = initializeDTO{SqrtPriceX96: bigString(p.SqrtPriceX96), Tick: p.Tick}
	case domain.MintParams:
		params = mintDTO{
			Sender: p.Sender, Owner: p.Owner, TickLower: p.TickLower, TickUpper: p.TickUpper,
			Amount: bigString(p.Amount), Amount0: bigString(p.Amount0), Amount1: bigString(p.Amount1),
		}
	case domain.BurnParams:
		params = burnDTO{
			Owner: p.Owner, TickLower: p.TickLower, TickUpper: p.TickUpper,
			Amount: bigString(p.Amount), Amount0: bigString(p.Amount0), Amount1: bigString(p.Amount1),
		}
	case domain.CollectParams:
		params = collectDTO{
			Owner: p.Owner, Recipient: p.Recipient, TickLower: p.TickLower, TickUpper: p.TickUpper,
			Amount0: bigString(p.Amount0), Amount1: bigString(p.Amount1),
		}
	case domain.SwapParams:
		params = swapDTO{
			Sender: p.Sender, Recipient: p.Recipient,
			Amount0: bigString(p.Amount0), Amount1: bigString(p.Amount1),
			SqrtPriceX96: bigString(p.SqrtPriceX96), Liquidity: bigString(p.Liquidity), Tick: p.Tick,
		}
	default:
		return nil, fmt.Errorf("%w: params %T", ErrMalformedEvent, ev.Params)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	return &EventDTO{
		ChainID:         ev.ChainID,
		SrcAddress:      ev.SrcAddress,
		BlockNumber:     ev.BlockNumber,
		BlockTimestamp:  ev.BlockTimestamp,
		TransactionHash: ev.TransactionHash,
		TransactionFrom: ev.TransactionFrom,
		LogIndex:        ev.LogIndex,
		Kind:            string(ev.Kind),
		Params:          raw,
	}, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parser keeps the first error so ToModel reads as a plain field list
type parser struct {
	err error
}

func (p *parser) fail(field, msg string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s %s", ErrMalformedEvent, field, msg)
	}
}

func (p *parser) params(raw json.RawMessage, into any) {
	if len(raw) == 0 {
		p.fail("params", "missing")
		return
	}
	if err := json.Unmarshal(raw, into); err != nil {
		p.fail("params", err.Error())
	}
}

func (p *parser) address(field, s string) string {
	addr, ok := domain.NormalizeAddress(s)
	if !ok {
		p.fail(field, fmt.Sprintf("not an address: %q", s))
	}
	return addr
}

func (p *parser) hash(field, s string) string {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		p.fail(field, fmt.Sprintf("not a 32-byte hash: %q", s))
		return ""
	}
	return strings.ToLower(s)
}

func (p *parser) tick(field string, v int64) int64 {
	if err := mathutil.CheckTick(v); err != nil {
		p.fail(field, err.Error())
	}
	return v
}

// tickRange checks a position range and returns upper
func (p *parser) tickRange(lower, upper int64) int64 {
	if err := mathutil.CheckTickRange(lower, upper); err != nil {
		p.fail("tick_lower/tick_upper", err.Error())
	}
	return upper
}

func (p *parser) big(field, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		p.fail(field, fmt.Sprintf("not an integer: %q", s))
		return nil
	}
	return v
}
