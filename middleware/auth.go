package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/store"
	"home-services-server/types"
)

const accountKey = "account"

// TokenValidator parses bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.Claims, error)
}

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header and
// loads the account it names.
func AuthMiddleware(tokens TokenValidator, accounts store.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, errors.Unauthorizedf("authorization header required"))
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			abortWith(c, errors.Unauthorizedf("token must be in format: Bearer <token>"))
			return
		}
		authenticate(c, tokens, accounts, tokenString)
	}
}

// WebSocketAuthMiddleware reads the token from the "token" query parameter,
// since browsers cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware(tokens TokenValidator, accounts store.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			abortWith(c, errors.Unauthorizedf("token query parameter required"))
			return
		}
		authenticate(c, tokens, accounts, tokenString)
	}
}

func authenticate(c *gin.Context, tokens TokenValidator, accounts store.Accounts, tokenString string) {
	claims, err := tokens.ValidateToken(tokenString)
	if err != nil {
		abortWith(c, err)
		return
	}

	account, err := accounts.AccountByID(c.Request.Context(), claims.UserID)
	if errors.Is(err, errors.NotFound) {
		abortWith(c, errors.Unauthorizedf("account for token no longer exists"))
		return
	}
	if err != nil {
		abortWith(c, errors.Trace(err))
		return
	}

	c.Set(accountKey, account)
	c.Set("user_id", account.ID)
	c.Next()
}

// RequireRoles rejects authenticated callers whose role is not listed
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		account := CurrentAccount(c)
		if account == nil {
			abortWith(c, errors.Unauthorizedf("authentication required"))
			return
		}
		for _, role := range roles {
			if account.Role == role {
				c.Next()
				return
			}
		}
		abortWith(c, errors.Forbiddenf("role %q is not allowed to access this resource", account.Role))
	}
}

// CurrentAccount returns the account loaded by AuthMiddleware, or nil
func CurrentAccount(c *gin.Context) *models.Account {
	value, exists := c.Get(accountKey)
	if !exists {
		return nil
	}
	account, _ := value.(*models.Account)
	return account
}

func abortWith(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}
