package handlers

import (
	"errors"
	"net/http"
	"strconv"

	mw "github.com/tokomedia/mediamart/internal/app/api/middleware"
	"github.com/tokomedia/mediamart/internal/app/service/medialib"
	"github.com/tokomedia/mediamart/internal/app/service/quota"
	models "github.com/tokomedia/mediamart/internal/models"
	"github.com/tokomedia/mediamart/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      List Media
// @Description  Browses the active media library. Browsing does not consume quota.
// @Tags         Media
// @Produce      json
// @Param        category_id query string false "Category filter"
// @Param        media_type  query string false "Media type filter (image, audio, video)"
// @Param        search      query string false "Title search"
// @Param        limit       query int false "Page size"
// @Param        offset      query int false "Page offset"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/media [get]
func ApiListMedia(svc *medialib.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		items, total, err := svc.List(c.Request.Context(), &medialib.ListMediaRequest{
			CategoryID: c.Query("category_id"),
			MediaType:  models.MediaType(c.Query("media_type")),
			Search:     c.Query("search"),
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"items": items, "total": total}))
	}
}

// @Summary      Get Media
// @Tags         Media
// @Produce      json
// @Param        id path string true "Media id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/media/{id} [get]
func ApiGetMedia(svc *medialib.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, medialib.ErrMediaNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "media not found"))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(m))
	}
}

// @Summary      List Categories
// @Tags         Media
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/media/categories [get]
func ApiListCategories(svc *medialib.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := svc.ListCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(cats))
	}
}

// @Summary      Download Media
// @Description  Spends one download from the caller's quota and returns a time-bounded download URL.
// @Tags         Media
// @Produce      json
// @Param        id path string true "Media id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/media/{id}/download [post]
func ApiDownloadMedia(svc *medialib.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		grant, err := svc.IssueDownload(c.Request.Context(), user.ID, c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, medialib.ErrMediaNotFound):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, "media not found"))
			case errors.Is(err, quota.ErrNoActiveSubscription):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeForbidden, "no active subscription"))
			case errors.Is(err, quota.ErrQuotaExceeded):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeQuota, "download quota exceeded"))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(grant))
	}
}

// @Summary      Download History
// @Tags         Media
// @Produce      json
// @Param        limit  query int false "Page size"
// @Param        offset query int false "Page offset"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/media/downloads [get]
func ApiDownloadHistory(svc *medialib.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := mw.CurrentUser(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		items, total, err := svc.History(c.Request.Context(), user.ID, limit, offset)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"items": items, "total": total}))
	}
}

// RegisterMediaRoutes wires the public browse routes.
func RegisterMediaRoutes(r gin.IRouter, svc *medialib.Service) {
	r.GET("/media", ApiListMedia(svc))
	r.GET("/media/categories", ApiListCategories(svc))
	r.GET("/media/:id", ApiGetMedia(svc))
}

// RegisterMediaAuthRoutes wires routes that require an authenticated user.
func RegisterMediaAuthRoutes(r gin.IRouter, svc *medialib.Service) {
	r.POST("/media/:id/download", ApiDownloadMedia(svc))
	r.GET("/media/downloads", ApiDownloadHistory(svc))
}
