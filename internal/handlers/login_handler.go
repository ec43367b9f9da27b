package handlers

import (
	"net/http"

	"go-pos-ledger/internal/services"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginRequest
	// 1. Validate Input JSON
	if !bindJSON(c, &input) {
		return
	}

	// 2. Verify username and password (bcrypt)
	user, err := h.Users.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		h.respondError(c, "Login", err)
		return
	}

	// 3. Generate JWT Token
	token, err := h.Signer.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		h.respondError(c, "Login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"role":     user.Role,
		"username": user.Username,
		"name":     user.Name,
	})
}

// Register is only routed when registration is enabled in config.
// New accounts are always staff; admins promote through the user endpoints.
func (h *Handler) Register(c *gin.Context) {
	var input LoginRequest
	if !bindJSON(c, &input) {
		return
	}

	user, err := h.Users.Create(c.Request.Context(), services.UserInput{
		Username: input.Username,
		Password: input.Password,
		Role:     services.RoleStaff,
	})
	if err != nil {
		h.respondError(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully!", "id": user.ID})
}

// --- Admin user management ---

func (h *Handler) GetUsers(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "GetUsers", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) AddUser(c *gin.Context) {
	var in services.UserInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.Users.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "AddUser", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.UserInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.Users.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, "UpdateUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "DeleteUser", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
