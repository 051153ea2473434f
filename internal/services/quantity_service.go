package services

import (
	"context"
	"fmt"
	"math/big"

	"mint-backend/internal/contracts"

	"github.com/ethereum/go-ethereum/common"
)

// ContractReader is the read surface of the collection contract the quantity
// guard and mint submitter depend on
type ContractReader interface {
	Invite(ctx context.Context, root common.Hash) (*contracts.Invite, error)
	Config(ctx context.Context) (*contracts.CollectionConfig, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// QuantityService computes how many tokens a wallet may still mint
type QuantityService struct {
	reader ContractReader
}

// NewQuantityService creates a quantity guard over the contract reader
func NewQuantityService(reader ContractReader) *QuantityService {
	return &QuantityService{reader: reader}
}

// MaxQuantity returns the effective per-transaction ceiling for the wallet
// minting against the given list root: the tightest of the wallet's remaining
// invite allowance, the batch size cap and the remaining collection supply.
// Never negative.
func (s *QuantityService) MaxQuantity(ctx context.Context, wallet common.Address, root common.Hash) (int64, error) {
	invite, err := s.reader.Invite(ctx, root)
	if err != nil {
		return 0, fmt.Errorf("failed to read invite terms: %w", err)
	}

	cfg, err := s.reader.Config(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read collection config: %w", err)
	}

	totalSupply, err := s.reader.TotalSupply(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read total supply: %w", err)
	}

	balance, err := s.reader.BalanceOf(ctx, wallet)
	if err != nil {
		return 0, fmt.Errorf("failed to read wallet balance: %w", err)
	}

	walletRemaining := int64(invite.Limit) - balance.Int64()
	supplyRemaining := int64(cfg.MaxSupply) - totalSupply.Int64()
	batchCap := int64(cfg.MaxBatchSize)

	max := walletRemaining
	if batchCap < max {
		max = batchCap
	}
	if supplyRemaining < max {
		max = supplyRemaining
	}
	if max < 0 {
		max = 0
	}
	return max, nil
}

// Check rejects a requested quantity above the wallet's effective maximum
func (s *QuantityService) Check(ctx context.Context, wallet common.Address, root common.Hash, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrQuantityExceeded)
	}
	max, err := s.MaxQuantity(ctx, wallet, root)
	if err != nil {
		return err
	}
	if quantity > max {
		return fmt.Errorf("%w: requested %d, allowed %d", ErrQuantityExceeded, quantity, max)
	}
	return nil
}
