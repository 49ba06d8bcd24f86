package clickhouse

import (
	"math/big"
	"time"

	"dexstats/internal/domain"
)

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func MintRow(chainID, block uint64, m *domain.Mint) PoolEventRow {
	return PoolEventRow{
		EventTime:   time.Unix(m.Timestamp, 0).UTC(),
		ChainID:     chainID,
		Kind:        string(domain.KindMint),
		EventID:     m.ID,
		TxHash:      m.Transaction,
		LogIndex:    m.LogIndex,
		BlockNumber: block,
		Pool:        m.Pool,
		Token0:      m.Token0,
		Token1:      m.Token1,
		Owner:       m.Owner,
		Sender:      m.Sender,
		Origin:      m.Origin,
		Amount:      bigString(m.Amount),
		Amount0:     m.Amount0.String(),
		Amount1:     m.Amount1.String(),
		AmountUSD:   m.AmountUSD.String(),
		TickLower:   int32(m.TickLower),
		TickUpper:   int32(m.TickUpper),
	}
}

func BurnRow(chainID, block uint64, b *domain.Burn) PoolEventRow {
	return PoolEventRow{
		EventTime:   time.Unix(b.Timestamp, 0).UTC(),
		ChainID:     chainID,
		Kind:        string(domain.KindBurn),
		EventID:     b.ID,
		TxHash:      b.Transaction,
		LogIndex:    b.LogIndex,
		BlockNumber: block,
		Pool:        b.Pool,
		Token0:      b.Token0,
		Token1:      b.Token1,
		Owner:       b.Owner,
		Origin:      b.Origin,
		Amount:      bigString(b.Amount),
		Amount0:     b.Amount0.String(),
		Amount1:     b.Amount1.String(),
		AmountUSD:   b.AmountUSD.String(),
		TickLower:   int32(b.TickLower),
		TickUpper:   int32(b.TickUpper),
	}
}

func CollectRow(chainID, block uint64, c *domain.Collect) PoolEventRow {
	return PoolEventRow{
		EventTime:   time.Unix(c.Timestamp, 0).UTC(),
		ChainID:     chainID,
		Kind:        string(domain.KindCollect),
		EventID:     c.ID,
		TxHash:      c.Transaction,
		LogIndex:    c.LogIndex,
		BlockNumber: block,
		Pool:        c.Pool,
		Owner:       c.Owner,
		Amount:      "0",
		Amount0:     c.Amount0.String(),
		Amount1:     c.Amount1.String(),
		AmountUSD:   c.AmountUSD.String(),
		TickLower:   int32(c.TickLower),
		TickUpper:   int32(c.TickUpper),
	}
}

func SwapRow(chainID, block uint64, s *domain.Swap) PoolEventRow {
	return PoolEventRow{
		EventTime:    time.Unix(s.Timestamp, 0).UTC(),
		ChainID:      chainID,
		Kind:         string(domain.KindSwap),
		EventID:      s.ID,
		TxHash:       s.Transaction,
		LogIndex:     s.LogIndex,
		BlockNumber:  block,
		Pool:         s.Pool,
		Token0:       s.Token0,
		Token1:       s.Token1,
		Sender:       s.Sender,
		Recipient:    s.Recipient,
		Origin:       s.Origin,
		Amount:       "0",
		Amount0:      s.Amount0.String(),
		Amount1:      s.Amount1.String(),
		AmountUSD:    s.AmountUSD.String(),
		Tick:         int32(s.Tick),
		SqrtPriceX96: bigString(s.SqrtPriceX96),
	}
}
