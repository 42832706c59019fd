package service

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// AuthService guards the mutating admin endpoints with a TOTP code. An empty
// secret disables the check, which is the right default for local setups.
type AuthService struct {
	logger     *zap.Logger
	totpSecret string
}

func NewAuthService(logger *zap.Logger, totpSecret string) *AuthService {
	return &AuthService{
		logger:     logger,
		totpSecret: totpSecret,
	}
}

func (a *AuthService) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Newsmill Admin",
		AccountName: "admin",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), nil
}

func (a *AuthService) ValidateCode(code string) bool {
	valid := totp.Validate(code, a.totpSecret)
	if !valid {
		a.logger.Warn("TOTP code validation failed")
	}
	return valid
}

// Middleware rejects requests without a valid X-Auth-Code header when a TOTP
// secret is configured.
func (a *AuthService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.totpSecret == "" {
			c.Next()
			return
		}

		code := c.GetHeader("X-Auth-Code")
		if code == "" || !a.ValidateCode(code) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
