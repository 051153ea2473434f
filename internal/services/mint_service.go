package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"mint-backend/internal/contracts"
	"mint-backend/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrQuantityExceeded the requested quantity is above the wallet's effective maximum
	ErrQuantityExceeded = errors.New("requested quantity exceeds allowed maximum")
	// ErrPriceCeilingExceeded the total mint cost is above the configured safety ceiling
	ErrPriceCeilingExceeded = errors.New("total mint price exceeds ceiling")
	// ErrGasEstimate gas estimation failed, the transaction would likely revert
	ErrGasEstimate = errors.New("gas estimation failed")
	// ErrSubmissionRejected the node rejected the signed transaction
	ErrSubmissionRejected = errors.New("transaction submission rejected")
	// ErrMintReverted the mint transaction was mined but reverted
	ErrMintReverted = errors.New("mint transaction reverted")
)

// MintBackend is the slice of the ethereum client the submitter needs.
// It covers bind.DeployBackend so confirmation can ride bind.WaitMined.
type MintBackend interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// MintRequest one mint submission. The minting identity is always the
// service signer: the contract credits and constrains the transaction
// sender, so quantity limits, proofs and token extraction are all evaluated
// against it, never against an order's ship-to wallet.
type MintRequest struct {
	Quantity    int64
	Eligibility *Eligibility
}

// MintResult outcome of a confirmed mint
type MintResult struct {
	TxHash   common.Hash
	TokenIDs []string
	GasUsed  uint64
}

// MintService builds, bounds, signs and submits mint transactions, then
// waits for confirmation and decodes the minted token IDs.
type MintService struct {
	backend  MintBackend
	contract *contracts.Archetype
	reader   ContractReader
	quantity *QuantityService
	signer   *Signer
	chainID  *big.Int
	logger   *logrus.Logger

	priceCeiling   *big.Int
	gasCeiling     uint64
	maxFeePerGas   *big.Int
	maxPriorityFee *big.Int
}

// MintServiceOptions safety ceilings applied to every submission
type MintServiceOptions struct {
	PriceCeiling         *big.Int
	GasCeiling           uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// NewMintService wires the submitter
func NewMintService(
	backend MintBackend,
	contract *contracts.Archetype,
	reader ContractReader,
	quantity *QuantityService,
	signer *Signer,
	chainID *big.Int,
	opts MintServiceOptions,
	logger *logrus.Logger,
) *MintService {
	return &MintService{
		backend:        backend,
		contract:       contract,
		reader:         reader,
		quantity:       quantity,
		signer:         signer,
		chainID:        chainID,
		logger:         logger,
		priceCeiling:   opts.PriceCeiling,
		gasCeiling:     opts.GasCeiling,
		maxFeePerGas:   opts.MaxFeePerGas,
		maxPriorityFee: opts.MaxPriorityFeePerGas,
	}
}

// Minter returns the wallet that signs, pays for and receives mints
func (s *MintService) Minter() common.Address {
	return s.signer.Address
}

// Mint runs the full submission pipeline. The quantity guard and price
// ceiling are checked before anything touches the node, so a bad request
// never costs an estimate call. Confirmation waits until the caller's
// context expires; the submitter imposes no timeout of its own.
func (s *MintService) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	if req.Eligibility == nil {
		req.Eligibility = PublicEligibility()
	}

	minter := s.signer.Address
	if err := s.quantity.Check(ctx, minter, req.Eligibility.Root, req.Quantity); err != nil {
		if errors.Is(err, ErrQuantityExceeded) {
			metrics.MintAttempts.WithLabelValues("quantity_exceeded").Inc()
		}
		return nil, err
	}

	invite, err := s.reader.Invite(ctx, req.Eligibility.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read invite terms: %w", err)
	}

	total := new(big.Int).Mul(invite.Price, big.NewInt(req.Quantity))
	if s.priceCeiling != nil && total.Cmp(s.priceCeiling) > 0 {
		metrics.MintAttempts.WithLabelValues("price_ceiling").Inc()
		return nil, fmt.Errorf("%w: total %s wei, ceiling %s wei", ErrPriceCeilingExceeded, total, s.priceCeiling)
	}

	auth := contracts.NewAuth(req.Eligibility.Root, req.Eligibility.Proof)
	calldata, err := s.contract.PackMint(auth, big.NewInt(req.Quantity), common.Address{}, [32]byte{})
	if err != nil {
		return nil, err
	}

	contractAddr := s.contract.Address()
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.signer.Address,
		To:    &contractAddr,
		Value: total,
		Data:  calldata,
	})
	if err != nil {
		metrics.MintAttempts.WithLabelValues("gas_estimate_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrGasEstimate, err)
	}
	if gas > s.gasCeiling {
		s.logger.WithFields(logrus.Fields{
			"estimated": gas,
			"ceiling":   s.gasCeiling,
		}).Warn("Gas estimate above ceiling, clamping")
		metrics.GasClamps.Inc()
		gas = s.gasCeiling
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.signer.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: s.maxPriorityFee,
		GasFeeCap: s.maxFeePerGas,
		Gas:       gas,
		To:        &contractAddr,
		Value:     total,
		Data:      calldata,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.signer.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		metrics.MintAttempts.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrSubmissionRejected, err)
	}

	txHash := signedTx.Hash()
	s.logger.WithFields(logrus.Fields{
		"txHash":   txHash.Hex(),
		"minter":   minter.Hex(),
		"quantity": req.Quantity,
		"value":    total.String(),
		"gas":      gas,
	}).Info("Mint transaction submitted")

	receipt, err := bind.WaitMined(ctx, s.backend, signedTx)
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.MintAttempts.WithLabelValues("reverted").Inc()
		return nil, fmt.Errorf("%w: tx %s", ErrMintReverted, txHash.Hex())
	}

	tokenIDs := contracts.TokenIDsFromLogs(receipt.Logs, contractAddr, minter)
	metrics.MintAttempts.WithLabelValues("confirmed").Inc()
	s.logger.WithFields(logrus.Fields{
		"txHash":   txHash.Hex(),
		"tokenIds": tokenIDs,
		"gasUsed":  receipt.GasUsed,
	}).Info("Mint transaction confirmed")

	return &MintResult{
		TxHash:   txHash,
		TokenIDs: tokenIDs,
		GasUsed:  receipt.GasUsed,
	}, nil
}
