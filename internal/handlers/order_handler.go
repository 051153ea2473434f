package handlers

import (
	"net/http"
	"strconv"
	"time"

	"mint-backend/internal/ledger"
	"mint-backend/internal/metrics"
	"mint-backend/internal/models"
	"mint-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// shipping field length caps applied before an order is stored
const (
	maxNameLen       = 100
	maxEmailLen      = 100
	maxAddressLen    = 200
	maxCityLen       = 50
	maxStateLen      = 50
	maxPostalCodeLen = 20
	maxCountryLen    = 50
	maxSizeLen       = 10
)

// OrderHandler order gateway handler
type OrderHandler struct {
	ledger         *ledger.Ledger
	allowedWallets map[string]bool
	logger         *logrus.Logger
}

// NewOrderHandler creates the order gateway. allowedWallets are normalized to
// lowercase so matching is case-insensitive.
func NewOrderHandler(orderLedger *ledger.Ledger, allowedWallets []string, logger *logrus.Logger) *OrderHandler {
	allowed := make(map[string]bool, len(allowedWallets))
	for _, w := range allowedWallets {
		allowed[utils.NormalizeAddress(w)] = true
	}
	return &OrderHandler{
		ledger:         orderLedger,
		allowedWallets: allowed,
		logger:         logger,
	}
}

// CreateOrderRequest order submission payload
type CreateOrderRequest struct {
	ID            string              `json:"id"`
	WalletAddress string              `json:"walletAddress" binding:"required"`
	IsAnonymous   bool                `json:"isAnonymous"`
	ShippingInfo  models.ShippingInfo `json:"shippingInfo"`
	Timestamp     int64               `json:"timestamp"`
	TokenIDs      []string            `json:"tokenIds"`
}

// List returns every recorded order. Restricted to allow-listed wallets.
func (h *OrderHandler) List(c *gin.Context) {
	wallet := c.Query("wallet")
	if wallet == "" || !h.allowedWallets[utils.NormalizeAddress(wallet)] {
		h.logger.WithFields(logrus.Fields{
			"wallet":    wallet,
			"client_ip": c.ClientIP(),
		}).Warn("Unauthorized order list attempt")
		h.countGateway(c, http.StatusUnauthorized)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orders, err := h.ledger.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list orders")
		h.countGateway(c, http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	h.countGateway(c, http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Create records a new order
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.countGateway(c, http.StatusBadRequest)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !utils.IsEvmAddress(req.WalletAddress) {
		h.countGateway(c, http.StatusBadRequest)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}

	order := h.buildOrder(&req)
	if err := h.ledger.Record(c.Request.Context(), order); err != nil {
		h.logger.WithFields(logrus.Fields{
			"orderId": order.ID,
			"error":   err.Error(),
		}).Error("Failed to record order")
		h.countGateway(c, http.StatusInternalServerError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record order"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"orderId":   order.ID,
		"wallet":    order.WalletAddress,
		"anonymous": order.IsAnonymous,
	}).Info("Order recorded")
	h.countGateway(c, http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *OrderHandler) buildOrder(req *CreateOrderRequest) *models.Order {
	shipping := req.ShippingInfo
	if req.IsAnonymous {
		// anonymous orders never persist user-entered shipping data
		shipping = models.AnonymousShippingInfo()
	} else {
		shipping.Name = utils.Truncate(shipping.Name, maxNameLen)
		shipping.Email = utils.Truncate(shipping.Email, maxEmailLen)
		shipping.Address = utils.Truncate(shipping.Address, maxAddressLen)
		shipping.City = utils.Truncate(shipping.City, maxCityLen)
		shipping.State = utils.Truncate(shipping.State, maxStateLen)
		shipping.PostalCode = utils.Truncate(shipping.PostalCode, maxPostalCodeLen)
		shipping.Country = utils.Truncate(shipping.Country, maxCountryLen)
		shipping.Size = utils.Truncate(shipping.Size, maxSizeLen)
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	return &models.Order{
		ID:            id,
		WalletAddress: utils.NormalizeAddress(req.WalletAddress),
		IsAnonymous:   req.IsAnonymous,
		ShippingInfo:  shipping,
		Timestamp:     timestamp,
		TokenIDs:      models.StringList(req.TokenIDs),
	}
}

func (h *OrderHandler) countGateway(c *gin.Context, status int) {
	metrics.GatewayRequests.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()
}
