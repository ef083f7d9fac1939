package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/tokomedia/mediamart/internal/app/service/catalog"
	"github.com/tokomedia/mediamart/internal/app/service/medialib"
	"github.com/tokomedia/mediamart/internal/app/service/quota"
	"github.com/tokomedia/mediamart/internal/app/service/settlement"
	"github.com/tokomedia/mediamart/internal/app/service/statistics"
	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      Scan Transactions (Admin)
// @Description  Paginated, filterable listing over the whole transaction ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body settlement.ScanTransactionsRequest true "Scan request with filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanTransactions
// @Router       /api/admin/transactions/scan [post]
func ApiScanTransactions(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req settlement.ScanTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Transaction (Admin)
// @Tags         Admin
// @Produce      json
// @Param        order_id path string true "Merchant order id"
// @Success      200  {object}  handlers.RespTransaction
// @Router       /api/admin/transactions/{order_id} [get]
func ApiAdminGetTransaction(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svc.GetTransaction(c.Request.Context(), c.Param("order_id"))
		if err != nil {
			if errors.Is(err, settlement.ErrTransactionNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "transaction not found"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(t))
	}
}

// @Summary      Create Package (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body models.SubscriptionPackage true "Package"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/packages [post]
func ApiAdminCreatePackage(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var pkg models.SubscriptionPackage
		if err := c.ShouldBindJSON(&pkg); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		created, err := cat.Create(c.Request.Context(), &pkg)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(created))
	}
}

// @Summary      Update Package (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Package id"
// @Param        request body map[string]any true "Column updates"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/packages/{id} [patch]
func ApiAdminUpdatePackage(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var updates map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		pkg, err := cat.Update(c.Request.Context(), c.Param("id"), updates)
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

// @Summary      Deactivate Package (Admin)
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Package id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/packages/{id} [delete]
func ApiAdminDeactivatePackage(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cat.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, catalog.ErrPackageNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "package not found"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type grantSubscriptionRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	PackageID string `json:"package_id" binding:"required"`
}

// @Summary      Grant Subscription (Admin)
// @Description  Provisions a subscription for a user outside the payment flow.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body grantSubscriptionRequest true "Grant request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/subscriptions/grant [post]
func ApiAdminGrantSubscription(q *quota.Service, cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req grantSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		pkg, err := cat.Get(c.Request.Context(), req.PackageID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "package not found"))
			return
		}
		sub, err := q.Grant(c.Request.Context(), req.UserID, pkg.SubscriptionPackage)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type topUpRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	Downloads int    `json:"downloads" binding:"required,gt=0"`
}

// @Summary      Top Up Quota (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body topUpRequest true "Top up request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/subscriptions/topup [post]
func ApiAdminTopUpQuota(q *quota.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req topUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		snap, err := q.TopUp(c.Request.Context(), req.UserID, req.Downloads)
		if err != nil {
			if errors.Is(err, quota.ErrNoActiveSubscription) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "no active subscription"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Dashboard Statistics (Admin)
// @Description  Resolves the requested statistic data items over the transaction, subscription and download ledgers.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.DashboardRequest true "Statistic request with filters and data items"
// @Success      200  {object}  handlers.RespDashboardStatistic
// @Router       /api/admin/statistics [post]
func ApiAdminDashboardStatistic(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.DashboardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.GetDashboardStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Revenue Snapshots (Admin)
// @Tags         Admin
// @Produce      json
// @Param        from query string false "Start date YYYY-MM-DD"
// @Param        to   query string false "End date YYYY-MM-DD"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/statistics/revenue [get]
func ApiAdminRevenueSnapshots(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		to := time.Now()
		from := to.AddDate(0, 0, -30)
		if v := c.Query("from"); v != "" {
			if d, err := time.Parse(time.DateOnly, v); err == nil {
				from = d
			}
		}
		if v := c.Query("to"); v != "" {
			if d, err := time.Parse(time.DateOnly, v); err == nil {
				to = d
			}
		}
		rows, err := stats.RevenueSnapshots(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Deactivate Media (Admin)
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Media id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/admin/media/{id} [delete]
func ApiAdminDeactivateMedia(media *medialib.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := media.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, medialib.ErrMediaNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "media not found"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminRoutes(r gin.IRouter, svc *settlement.Service, cat *catalog.Service, q *quota.Service, stats *statistics.Service, media *medialib.Service) {
	r.POST("/transactions/scan", ApiScanTransactions(svc))
	r.GET("/transactions/:order_id", ApiAdminGetTransaction(svc))
	r.POST("/packages", ApiAdminCreatePackage(cat))
	r.PATCH("/packages/:id", ApiAdminUpdatePackage(cat))
	r.DELETE("/packages/:id", ApiAdminDeactivatePackage(cat))
	r.POST("/subscriptions/grant", ApiAdminGrantSubscription(q, cat))
	r.POST("/subscriptions/topup", ApiAdminTopUpQuota(q))
	r.POST("/statistics", ApiAdminDashboardStatistic(stats))
	r.GET("/statistics/revenue", ApiAdminRevenueSnapshots(stats))
	r.DELETE("/media/:id", ApiAdminDeactivateMedia(media))
}
