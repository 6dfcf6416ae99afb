package main

import (
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/checks_backend/config"
	"bitbucket.org/mmdatafocus/checks_backend/models"
	"bitbucket.org/mmdatafocus/checks_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionTTL = 24 * time.Hour

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ImageUrl string `json:"imageUrl,omitempty"`
}

// loginHandler verifies credentials and opens a redis-backed session. The
// returned token doubles as a Bearer JWT for scanner-side automation.
func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		user, err := models.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if user.IsActive != nil && !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if err := utils.ComparePassword(user.Password, req.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := utils.JwtGenerate(user.ID, string(user.Role))
		if err != nil {
			config.LogError(logger, "auth.go", "loginHandler", "generating token", user.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		if err := config.SetRedisValue("Token:"+token, user.Username, sessionTTL); err != nil {
			config.LogError(logger, "auth.go", "loginHandler", "caching session", user.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		_ = user.CacheInstanceRedis()

		logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Info("[auth.login]")

		c.JSON(http.StatusOK, gin.H{
			"data": loginResponse{
				Token:    token,
				Username: user.Username,
				Name:     user.Name,
				Role:     string(user.Role),
				ImageUrl: user.ImageUrl,
			},
		})
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.GetTokenFromContext(c.Request.Context())
		if !ok || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func sessionInfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := models.SessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"name":     user.Name,
			"role":     user.Role,
			"imageUrl": user.ImageUrl,
		}})
	}
}
