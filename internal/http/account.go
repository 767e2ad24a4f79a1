package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fragmentado/catalog/internal/auth"
	"github.com/fragmentado/catalog/internal/entities"
	"github.com/fragmentado/catalog/internal/store"
)

const minUsernameLength = 4

// AccountController handles admin authentication and credential
// management. A single admin credential exists; bootstrap creates it
// once and account update rotates it.
type AccountController struct {
	Store    store.Store
	Sessions *auth.SessionManager
}

func NewAccountController(s store.Store, sessions *auth.SessionManager) *AccountController {
	return &AccountController{Store: s, Sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and opens a session. A missing admin
// record responds 404 so the UI can route to bootstrap.
func (ctrl *AccountController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	admin, err := ctrl.Store.Admin()
	if err != nil {
		respondError(c, err)
		return
	}
	if admin == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no admin account exists yet"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username != admin.Username {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := auth.CheckPassword(req.Password, admin.PasswordSalt, admin.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := ctrl.Sessions.CreateSession(c.Request, admin.Username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "username": admin.Username})
}

func (ctrl *AccountController) Logout(c *gin.Context) {
	if err := ctrl.Sessions.DestroySession(c.Request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session reports the current session state plus whether an admin
// credential exists at all, so the login page can offer bootstrap.
func (ctrl *AccountController) Session(c *gin.Context) {
	admin, err := ctrl.Store.Admin()
	if err != nil {
		respondError(c, err)
		return
	}

	username := ctrl.Sessions.Username(c.Request)
	c.JSON(http.StatusOK, gin.H{
		"authenticated": username != "",
		"username":      username,
		"adminExists":   admin != nil,
	})
}

type bootstrapRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Bootstrap creates the first admin credential. Refused once one
// exists.
func (ctrl *AccountController) Bootstrap(c *gin.Context) {
	var req bootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	existing, err := ctrl.Store.Admin()
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "an admin account already exists"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be at least 4 characters"})
		return
	}
	salt, hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	admin := &entities.AdminCredential{
		Key:          entities.AdminKey,
		Username:     username,
		PasswordSalt: salt,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := ctrl.Store.SetAdmin(admin); err != nil {
		respondError(c, err)
		return
	}

	if err := ctrl.Sessions.CreateSession(c.Request, username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "username": username})
}

type accountUpdateRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Username        string `json:"username"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateAccount changes the admin username and optionally the password.
// The current password is always required.
func (ctrl *AccountController) UpdateAccount(c *gin.Context) {
	var req accountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	admin, err := ctrl.Store.Admin()
	if err != nil {
		respondError(c, err)
		return
	}
	if admin == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no admin account exists yet"})
		return
	}
	if err := auth.CheckPassword(req.CurrentPassword, admin.PasswordSalt, admin.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = admin.Username
	}
	if len(username) < minUsernameLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be at least 4 characters"})
		return
	}

	next := *admin
	next.Username = username
	if req.NewPassword != "" {
		if req.NewPassword != req.ConfirmPassword {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password confirmation does not match"})
			return
		}
		salt, hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		next.PasswordSalt = salt
		next.PasswordHash = hash
	}
	next.UpdatedAt = time.Now().UTC()

	if _, err := ctrl.Store.SetAdmin(&next); err != nil {
		respondError(c, err)
		return
	}

	if err := ctrl.Sessions.CreateSession(c.Request, next.Username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "username": next.Username})
}
