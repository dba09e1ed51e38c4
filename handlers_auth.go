package main

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/lgugso/assets_backend/config"
	"bitbucket.org/lgugso/assets_backend/models"
	"bitbucket.org/lgugso/assets_backend/utils"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "username and password are required"})
			return
		}

		token, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, utils.ErrorInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid username or password"})
				return
			}
			config.LogError(logger, "handlers_auth.go", "loginHandler", "Login", req.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	}
}

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please fill out all required fields."})
			return
		}

		user, err := models.CreateUserAccount(c.Request.Context(), &input)
		if err != nil {
			if errors.Is(err, utils.ErrorUsernameTaken) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Username already exists."})
				return
			}
			if errors.Is(err, utils.ErrorInvalidEmail) || errors.Is(err, utils.ErrorInvalidPhone) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
				return
			}
			config.LogError(logger, "handlers_auth.go", "createAccountHandler", "CreateUserAccount", input.Username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error saving account."})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Account created successfully", "data": user})
	}
}

func profileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		user, err := models.FetchUserById(c.Request.Context(), userId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Account not found"})
				return
			}
			config.LogError(logger, "handlers_auth.go", "profileHandler", "FetchUserById", userId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		users, err := models.FetchAllUsers(c.Request.Context())
		if err != nil {
			config.LogError(logger, "handlers_auth.go", "listAccountsHandler", "FetchAllUsers", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
	}
}

func updateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid account id"})
			return
		}

		var input models.UpdateUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
			return
		}

		user, err := models.UpdateUserAccount(c.Request.Context(), id, &input)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Account not found"})
				return
			}
			config.LogError(logger, "handlers_auth.go", "updateAccountHandler", "UpdateUserAccount", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error updating account."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account updated successfully", "data": user})
	}
}

func deleteAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid account id"})
			return
		}

		if err := models.DeleteUserAccount(c.Request.Context(), id); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Account not found"})
				return
			}
			config.LogError(logger, "handlers_auth.go", "deleteAccountHandler", "DeleteUserAccount", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error deleting account."})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account deleted successfully"})
	}
}
