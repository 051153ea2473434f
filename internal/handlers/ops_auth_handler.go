package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
)

const defaultOpsJWTSecret = "mint-backend-ops-jwt-secret-change-me"

// OpsAuthHandler operator authentication handler
type OpsAuthHandler struct {
	jwtSecret  []byte
	totpSecret string
	logger     *logrus.Logger
}

// OpsLoginRequest operator login request
type OpsLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

// OpsLoginResponse operator login response
type OpsLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// OpsJWTClaims operator JWT claims
type OpsJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewOpsAuthHandler creates the operator auth handler. Credentials come from
// OPS_TOTP_SECRET, OPS_PASSWORD and OPS_JWT_SECRET env vars; login is
// rejected while the first two are unset.
func NewOpsAuthHandler(logger *logrus.Logger) *OpsAuthHandler {
	totpSecret := os.Getenv("OPS_TOTP_SECRET")
	if totpSecret == "" || os.Getenv("OPS_PASSWORD") == "" {
		logger.Warn("OPS_TOTP_SECRET or OPS_PASSWORD not set, operator login is disabled")
	}

	jwtSecret := []byte(os.Getenv("OPS_JWT_SECRET"))
	if len(jwtSecret) == 0 {
		jwtSecret = []byte(defaultOpsJWTSecret)
		logger.Warn("Using default OPS_JWT_SECRET, set the env var in production")
	}

	return &OpsAuthHandler{
		jwtSecret:  jwtSecret,
		totpSecret: totpSecret,
		logger:     logger,
	}
}

// Login verifies username, password and TOTP code, then issues a JWT
func (h *OpsAuthHandler) Login(c *gin.Context) {
	if h.totpSecret == "" {
		c.JSON(http.StatusInternalServerError, OpsLoginResponse{
			Success: false,
			Message: "Server misconfiguration: OPS_TOTP_SECRET not set",
		})
		return
	}
	opsPassword := os.Getenv("OPS_PASSWORD")
	if opsPassword == "" {
		c.JSON(http.StatusInternalServerError, OpsLoginResponse{
			Success: false,
			Message: "Server misconfiguration: OPS_PASSWORD not set",
		})
		return
	}

	var req OpsLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, OpsLoginResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	expectedUsername := os.Getenv("OPS_USERNAME")
	if expectedUsername == "" {
		expectedUsername = "admin"
	}

	// deliberately generic error messages for every credential failure
	if req.Username != expectedUsername || req.Password != opsPassword {
		h.logger.WithField("username", req.Username).Warn("Operator login rejected - bad credentials")
		c.JSON(http.StatusUnauthorized, OpsLoginResponse{
			Success: false,
			Message: "Invalid credentials",
		})
		return
	}

	if !totp.Validate(req.TOTPCode, h.totpSecret) {
		h.logger.WithField("username", req.Username).Warn("Operator login rejected - bad TOTP code")
		c.JSON(http.StatusUnauthorized, OpsLoginResponse{
			Success: false,
			Message: "Invalid TOTP code",
		})
		return
	}

	token, err := h.generateJWTToken(req.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate operator token")
		c.JSON(http.StatusInternalServerError, OpsLoginResponse{
			Success: false,
			Message: "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, OpsLoginResponse{
		Success: true,
		Token:   token,
		Message: "Login successful",
	})
}

func (h *OpsAuthHandler) generateJWTToken(username string) (string, error) {
	claims := OpsJWTClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "mint-backend-ops",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateOpsJWTToken verifies an operator JWT and returns its claims
func ValidateOpsJWTToken(tokenString string) (*OpsJWTClaims, error) {
	jwtSecret := []byte(os.Getenv("OPS_JWT_SECRET"))
	if len(jwtSecret) == 0 {
		jwtSecret = []byte(defaultOpsJWTSecret)
	}

	token, err := jwt.ParseWithClaims(tokenString, &OpsJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*OpsJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
