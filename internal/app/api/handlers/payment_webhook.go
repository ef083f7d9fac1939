package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tokomedia/mediamart/internal/app/service/settlement"
	"github.com/tokomedia/mediamart/internal/platform/duitku"
	"github.com/tokomedia/mediamart/pkg/logctx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary      Payment Callback
// @Description  Handles payment notifications from the gateway. Form-encoded; authenticated by the callback signature, not by a user token. Processed notifications, including business failures, answer 200 with a bare {"success":true}; structurally invalid or unverifiable ones answer 400.
// @Tags         Webhook
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/payment/callback [post]
func ApiPaymentCallback(svc *settlement.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logctx.FromGin(c, log)

		var params duitku.CallbackParams
		if err := c.ShouldBind(&params); err != nil || params.MerchantOrderID == "" {
			l.Warnw("callback_malformed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed notification"})
			return
		}
		l.Infow("callback_received", "order_id", params.MerchantOrderID, "result_code", params.ResultCode)

		// Keep the raw delivery for the audit row; the form has already been
		// parsed so re-encode the bound params.
		raw, _ := json.Marshal(&params)

		if err := svc.ProcessCallback(c.Request.Context(), &params, raw); err != nil {
			if errors.Is(err, settlement.ErrSignatureInvalid) {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid signature"})
				return
			}
			l.Errorw("callback_handle_error", "order_id", params.MerchantOrderID, "error", err.Error())
			c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
			return
		}
		l.Infow("callback_handled", "order_id", params.MerchantOrderID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, svc *settlement.Service, log *zap.SugaredLogger) {
	r.POST("/callback", ApiPaymentCallback(svc, log))
}
