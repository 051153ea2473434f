package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mint-backend/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ExportHandler CSV export of the order ledger for fulfilment
type ExportHandler struct {
	ledger *ledger.Ledger
	logger *logrus.Logger
}

// NewExportHandler creates the export handler
func NewExportHandler(orderLedger *ledger.Ledger, logger *logrus.Logger) *ExportHandler {
	return &ExportHandler{
		ledger: orderLedger,
		logger: logger,
	}
}

// ExportCSV streams every order as CSV, newest first
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	orders, err := h.ledger.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to export orders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	filename := fmt.Sprintf("orders-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	writer := csv.NewWriter(c.Writer)
	header := []string{
		"id", "walletAddress", "isAnonymous", "name", "email", "address",
		"city", "state", "postalCode", "country", "size", "isPoBox",
		"timestamp", "tokenIds",
	}
	if err := writer.Write(header); err != nil {
		h.logger.WithError(err).Error("Failed to write CSV header")
		return
	}

	for _, o := range orders {
		record := []string{
			o.ID,
			o.WalletAddress,
			strconv.FormatBool(o.IsAnonymous),
			o.ShippingInfo.Name,
			o.ShippingInfo.Email,
			o.ShippingInfo.Address,
			o.ShippingInfo.City,
			o.ShippingInfo.State,
			o.ShippingInfo.PostalCode,
			o.ShippingInfo.Country,
			o.ShippingInfo.Size,
			strconv.FormatBool(o.ShippingInfo.IsPoBox),
			strconv.FormatInt(o.Timestamp, 10),
			strings.Join(o.TokenIDs, " "),
		}
		if err := writer.Write(record); err != nil {
			h.logger.WithError(err).Error("Failed to write CSV record")
			return
		}
	}
	writer.Flush()

	h.logger.WithField("count", len(orders)).Info("Orders exported")
}
