package handlers

import (
	"EcoWatch/internal/models"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterUserForm struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
	City     string `json:"city"`
}

type LoginForm struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handlers) handleUserSignup(c *gin.Context) {
	var form RegisterUserForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	user, err := models.CreateUser(h.db.WithContext(c.Request.Context()), form.Username, form.Email, form.Password, form.City)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	if err := models.Login(c, user); err != nil {
		response.AbortWithError(c, err)
		return
	}
	logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("city", user.City))
	response.Success(c, "signup success", user)
}

func (h *Handlers) handleUserSignin(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	user, err := models.Authenticate(h.db.WithContext(c.Request.Context()), form.Username, form.Password)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	if err := models.Login(c, user); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "login success", user)
}

func (h *Handlers) handleUserLogout(c *gin.Context) {
	if err := models.Logout(c); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, "logout success", nil)
}

func (h *Handlers) handleUserInfo(c *gin.Context) {
	response.Success(c, "success", models.CurrentUser(c))
}
