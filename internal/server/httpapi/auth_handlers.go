package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "name, email and password are required")
		return
	}

	u, err := s.deps.Users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			abortMessage(c, http.StatusConflict, "email is already registered")
			return
		}
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Registered", "user_id", u.ID)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": toUserDTO(u)})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "email and password are required")
		return
	}

	pair, u, err := s.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			abortMessage(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokensDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: toUserDTO(u)})
}

func (s *HTTPServer) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "refreshToken is required")
		return
	}

	pair, err := s.deps.Users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokensDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}
