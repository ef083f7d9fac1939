package handlers

import (
	"errors"
	"net/http"
	"strconv"

	mw "github.com/tokomedia/mediamart/internal/app/api/middleware"
	"github.com/tokomedia/mediamart/internal/app/service/settlement"
	"github.com/tokomedia/mediamart/internal/platform/duitku"
	"github.com/tokomedia/mediamart/pkg/response"
	types "github.com/tokomedia/mediamart/pkg/types"

	"github.com/gin-gonic/gin"
)

type createPaymentRequest struct {
	PackageID string `json:"package_id" binding:"required"`
}

// @Summary      Create Payment
// @Description  Opens an invoice at the payment gateway for a subscription package and returns the pending transaction with its payment URL.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body createPaymentRequest true "Payment creation request"
// @Success      200  {object}  handlers.RespTransaction
// @Router       /api/payment/create [post]
func ApiCreatePayment(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		t, err := svc.CreatePayment(c.Request.Context(), &settlement.CreatePaymentRequest{
			UserID:       user.ID,
			PackageID:    req.PackageID,
			CustomerName: user.FullName,
			Email:        user.Email,
			PhoneNumber:  user.Phone,
		})
		if err != nil {
			switch {
			case errors.Is(err, settlement.ErrSubscriptionConflict):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeConflict, "an active subscription already exists"))
			case errors.Is(err, settlement.ErrPackageUnavailable):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "package unavailable"))
			case errors.Is(err, duitku.ErrPaymentRejected):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(t))
	}
}

// @Summary      Payment Status
// @Description  Returns the transaction state, polling the gateway while the transaction is still pending.
// @Tags         Payment
// @Produce      json
// @Param        order_id path string true "Merchant order id"
// @Success      200  {object}  handlers.RespTransaction
// @Router       /api/payment/status/{order_id} [get]
func ApiPaymentStatus(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		t, err := svc.CheckPaymentStatus(c.Request.Context(), user.ID, c.Param("order_id"))
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

// @Summary      Cancel Payment
// @Description  Cancels the caller's own pending transaction. Settled, expired or already cancelled transactions cannot be cancelled.
// @Tags         Payment
// @Produce      json
// @Param        order_id path string true "Merchant order id"
// @Success      200  {object}  handlers.RespTransaction
// @Router       /api/payment/cancel/{order_id} [post]
func ApiCancelPayment(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		t, err := svc.CancelTransaction(c.Request.Context(), user.ID, c.Param("order_id"))
		if err != nil {
			switch {
			case errors.Is(err, settlement.ErrTransactionNotFound):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "transaction not found"))
			case errors.Is(err, settlement.ErrNotCancellable):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeConflict, "transaction is not cancellable"))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(t))
	}
}

// @Summary      Payment Methods
// @Description  Lists gateway payment channels and fees for the given amount.
// @Tags         Payment
// @Produce      json
// @Param        amount query int true "Amount in rupiah"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/payment/methods [get]
func ApiPaymentMethods(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
		if err != nil || amount <= 0 {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid amount"))
			return
		}
		methods, err := svc.PaymentMethods(c.Request.Context(), amount)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(methods))
	}
}

// @Summary      List My Transactions
// @Description  Lists the caller's transactions, newest first, optionally filtered by status.
// @Tags         Payment
// @Produce      json
// @Param        status query string false "Transaction status filter"
// @Param        limit  query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/payment/transactions [get]
func ApiListTransactions(svc *settlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		status := types.TransactionStatus(c.Query("status"))

		items, total, err := svc.ListTransactions(c.Request.Context(), user.ID, status, limit, offset)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"items": items, "total": total}))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, svc *settlement.Service) {
	r.POST("/create", ApiCreatePayment(svc))
	r.GET("/status/:order_id", ApiPaymentStatus(svc))
	r.POST("/cancel/:order_id", ApiCancelPayment(svc))
	r.GET("/methods", ApiPaymentMethods(svc))
	r.GET("/transactions", ApiListTransactions(svc))
}
