package handlers

import (
	"errors"
	"net/http"

	"mint-backend/internal/ledger"
	"mint-backend/internal/services"
	"mint-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MintHandler mint orchestration endpoints
type MintHandler struct {
	mint        *services.MintService
	eligibility *services.EligibilityService
	quantity    *services.QuantityService
	ledger      *ledger.Ledger
	logger      *logrus.Logger
}

// NewMintHandler creates the mint handler
func NewMintHandler(
	mint *services.MintService,
	eligibility *services.EligibilityService,
	quantity *services.QuantityService,
	orderLedger *ledger.Ledger,
	logger *logrus.Logger,
) *MintHandler {
	return &MintHandler{
		mint:        mint,
		eligibility: eligibility,
		quantity:    quantity,
		ledger:      orderLedger,
		logger:      logger,
	}
}

// MintRequest mint submission payload. WalletAddress is the order's
// ship-to wallet, kept for record linkage; the mint itself always runs
// as the service signer, which is what the contract credits.
type MintRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
	Quantity      int64  `json:"quantity" binding:"required"`
	// OrderID links the mint to a previously recorded order, so token IDs
	// get attached after confirmation
	OrderID string `json:"orderId"`
}

// Mint resolves the signer's eligibility, submits the transaction and waits
// for confirmation. Blocks until confirmed or the request context expires.
func (h *MintHandler) Mint(c *gin.Context) {
	var req MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !utils.IsEvmAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	elig, err := h.eligibility.Resolve(c.Request.Context(), h.mint.Minter().Hex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve eligibility"})
		return
	}

	result, err := h.mint.Mint(c.Request.Context(), services.MintRequest{
		Quantity:    req.Quantity,
		Eligibility: elig,
	})
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"wallet":   req.WalletAddress,
			"quantity": req.Quantity,
			"error":    err.Error(),
		}).Warn("Mint failed")
		status := mintErrorStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if req.OrderID != "" {
		if err := h.ledger.AttachTokenIDs(c.Request.Context(), req.OrderID, result.TokenIDs); err != nil {
			// the mint itself succeeded; report the ledger gap but keep the 200
			h.logger.WithFields(logrus.Fields{
				"orderId": req.OrderID,
				"txHash":  result.TxHash.Hex(),
				"error":   err.Error(),
			}).Error("Failed to attach token IDs to order")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"txHash":   result.TxHash.Hex(),
		"tokenIds": result.TokenIDs,
		"gasUsed":  result.GasUsed,
	})
}

// Eligibility reports which list the wallet mints against
func (h *MintHandler) Eligibility(c *gin.Context) {
	wallet := c.Param("wallet")
	if !utils.IsEvmAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	elig, err := h.eligibility.Resolve(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve eligibility"})
		return
	}

	proof := make([]string, len(elig.Proof))
	for i, p := range elig.Proof {
		proof[i] = p.Hex()
	}
	c.JSON(http.StatusOK, gin.H{
		"private": elig.Private,
		"root":    elig.Root.Hex(),
		"proof":   proof,
		"status":  h.eligibility.Status(wallet),
	})
}

// MaxQuantity reports how many tokens the wallet may still mint
func (h *MintHandler) MaxQuantity(c *gin.Context) {
	wallet := c.Param("wallet")
	if !utils.IsEvmAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	elig, err := h.eligibility.Resolve(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve eligibility"})
		return
	}

	max, err := h.quantity.MaxQuantity(c.Request.Context(), common.HexToAddress(wallet), elig.Root)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"wallet": wallet,
			"error":  err.Error(),
		}).Error("Failed to compute max quantity")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read contract state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"maxQuantity": max,
		"private":     elig.Private,
	})
}

// ResetEligibility drops the cached eligibility for a wallet
func (h *MintHandler) ResetEligibility(c *gin.Context) {
	wallet := c.Param("wallet")
	if !utils.IsEvmAddress(wallet) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}
	h.eligibility.Reset(wallet)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func mintErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrQuantityExceeded):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrPriceCeilingExceeded):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrGasEstimate):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrSubmissionRejected):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrMintReverted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
