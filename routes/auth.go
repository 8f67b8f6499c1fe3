package routes

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"

	"home-services-server/models"
	"home-services-server/services"
	"home-services-server/store"
	"home-services-server/utils"
)

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Name     string          `json:"name" binding:"required"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=6"`
	Phone    string          `json:"phone" binding:"required"`
	Role     models.UserRole `json:"role"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string          `json:"token"`
	User  *models.Account `json:"user"`
}

type AuthHandler struct {
	accounts store.Accounts
	tokens   *services.JWTService
}

func NewAuthHandler(accounts store.Accounts, tokens *services.JWTService) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register", h.register)
	router.POST("/login", h.login)
}

// register handles account creation
func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleProvider {
		fail(c, errors.BadRequestf("role must be user or provider"))
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		fail(c, errors.Annotate(err, "hashing password"))
		return
	}

	account := &models.Account{
		Name:         req.Name,
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         role,
	}
	if err := h.accounts.CreateAccount(c.Request.Context(), account); err != nil {
		fail(c, errors.Trace(err))
		return
	}

	token, err := h.tokens.GenerateToken(account)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}

	log.Printf("✅ Registered %s account %d", account.Role, account.ID)
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: account})
}

// login exchanges email and password for a token
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	account, err := h.accounts.AccountByEmail(c.Request.Context(), models.NormalizeEmail(req.Email))
	if errors.Is(err, errors.NotFound) {
		fail(c, errors.Unauthorizedf("invalid email or password"))
		return
	}
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	if !utils.CheckPasswordHash(req.Password, account.PasswordHash) {
		fail(c, errors.Unauthorizedf("invalid email or password"))
		return
	}

	token, err := h.tokens.GenerateToken(account)
	if err != nil {
		fail(c, errors.Trace(err))
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: account})
}
