package handlers

import (
	"errors"
	"net/http"

	mw "github.com/tokomedia/mediamart/internal/app/api/middleware"
	"github.com/tokomedia/mediamart/internal/app/service/catalog"
	"github.com/tokomedia/mediamart/internal/app/service/quota"
	"github.com/tokomedia/mediamart/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      My Subscription
// @Description  Returns the caller's current entitlement: package, quota used and remaining, window dates. Having no subscription is a normal answer, not an error.
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/subscription [get]
func ApiMySubscription(q *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		info, err := q.Info(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(info))
	}
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Cancel Subscription
// @Description  Deactivates the caller's current subscription immediately. No refund; remaining quota is lost.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body cancelSubscriptionRequest false "Cancellation reason"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/subscription/cancel [post]
func ApiCancelSubscription(q *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		var req cancelSubscriptionRequest
		_ = c.ShouldBindJSON(&req)

		if err := q.Cancel(c.Request.Context(), user.ID, req.Reason); err != nil {
			if errors.Is(err, quota.ErrNoActiveSubscription) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no active subscription"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      List Packages
// @Description  Lists purchasable subscription packages in display order, with discounts applied.
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/packages [get]
func ApiListPackages(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		pkgs, err := cat.ListActive(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(pkgs))
	}
}

// @Summary      Get Package
// @Description  Returns one subscription package with its effective price.
// @Tags         Catalog
// @Produce      json
// @Param        id path string true "Package id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/packages/{id} [get]
func ApiGetPackage(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		pkg, err := cat.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, catalog.ErrPackageNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "package not found"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(pkg))
	}
}

func RegisterCatalogRoutes(r gin.IRouter, cat *catalog.Service) {
	r.GET("/packages", ApiListPackages(cat))
	r.GET("/packages/:id", ApiGetPackage(cat))
}

func RegisterSubscriptionRoutes(r gin.IRouter, q *quota.Service) {
	r.GET("/subscription", ApiMySubscription(q))
	r.POST("/subscription/cancel", ApiCancelSubscription(q))
}
