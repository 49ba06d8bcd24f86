package service

import (
	"context"
	"math/big"
	"strings"

	"dexstats/internal/domain"
	"dexstats/internal/stores"
)

// getOrSetTransaction one record per tx hash, shared by all its events.
// Block and timestamp follow the latest touch; gas is not tracked and stays zero
func getOrSetTransaction(ctx context.Context, s *state) (*domain.Transaction, error) {
	id := strings.ToLower(s.ev.TransactionHash)

	tx, ok, err := stores.Load[domain.Transaction](ctx, s.tx, domain.EntityTransaction, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		tx = &domain.Transaction{ID: id}
	}

	tx.BlockNumber = s.ev.BlockNumber
	tx.Timestamp = s.ev.BlockTimestamp
	tx.GasUsed = new(big.Int)
	tx.GasPrice = new(big.Int)

	if err = stores.Put(s.tx, domain.EntityTransaction, id, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
