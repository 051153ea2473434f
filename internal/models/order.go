package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ShippingInfo physical shipment data attached to a non-anonymous order
type ShippingInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Size       string `json:"size,omitempty"`
	IsPoBox    bool   `json:"isPoBox"`
}

// AnonymousShippingInfo is stored in place of user-entered shipping data for
// anonymous orders, so no PII is ever attached to them.
func AnonymousShippingInfo() ShippingInfo {
	return ShippingInfo{
		Name:       "anonymous",
		Email:      "anonymous",
		Address:    "N/A",
		City:       "N/A",
		State:      "N/A",
		PostalCode: "N/A",
		Country:    "N/A",
		Size:       "",
		IsPoBox:    false,
	}
}

// StringList stores an ordered string sequence as a JSON text column, so the
// same model works on both the postgres primary and the sqlite fallback.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for string list: %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Order one durable record per mint attempt
type Order struct {
	ID            string       `gorm:"primaryKey;size:64" json:"id"`
	WalletAddress string       `gorm:"size:42;index" json:"walletAddress"`
	IsAnonymous   bool         `json:"isAnonymous"`
	ShippingInfo  ShippingInfo `gorm:"embedded;embeddedPrefix:ship_" json:"shippingInfo"`
	// Timestamp is the client-side creation time in unix milliseconds
	Timestamp int64 `gorm:"index" json:"timestamp"`
	// TokenIDs stays empty until the mint transaction confirms
	TokenIDs  StringList `gorm:"type:text" json:"tokenIds"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

// TableName keeps the table name stable across stores
func (Order) TableName() string {
	return "orders"
}
