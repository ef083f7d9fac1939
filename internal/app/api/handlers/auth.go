package handlers

import (
	"errors"
	"net/http"

	mw "github.com/tokomedia/mediamart/internal/app/api/middleware"
	"github.com/tokomedia/mediamart/internal/app/service/account"
	"github.com/tokomedia/mediamart/internal/models"
	cfgpkg "github.com/tokomedia/mediamart/pkg/config"
	"github.com/tokomedia/mediamart/pkg/response"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type accountView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  accountView `json:"user"`
}

func toAccountView(u *models.User) accountView {
	return accountView{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		Role:     string(u.Role),
	}
}

// @Summary      Register
// @Description  Creates a user account. The caller still logs in afterwards to obtain a token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body registerRequest true "Registration payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/auth/register [post]
func ApiRegister(svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		u, err := svc.Register(c.Request.Context(), &account.RegisterRequest{
			Email:    req.Email,
			Password: req.Password,
			FullName: req.FullName,
			Phone:    req.Phone,
		})
		if err != nil {
			if errors.Is(err, account.ErrEmailTaken) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeConflict, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(toAccountView(u)))
	}
}

// @Summary      Login
// @Description  Verifies credentials and returns a bearer token for the authenticated surface.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body loginRequest true "Credentials"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/auth/login [post]
func ApiLogin(cfg *cfgpkg.Config, svc *account.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		u, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, account.ErrInvalidCredentials):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
			case errors.Is(err, account.ErrAccountDisabled):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeForbidden, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		token, err := mw.IssueToken(cfg.Auth, u)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(loginResponse{Token: token, User: toAccountView(u)}))
	}
}

func RegisterAuthRoutes(r gin.IRouter, cfg *cfgpkg.Config, svc *account.Service) {
	r.POST("/auth/register", ApiRegister(svc))
	r.POST("/auth/login", ApiLogin(cfg, svc))
}
