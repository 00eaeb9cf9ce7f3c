// Package settingdelivery manages delivery layer of back-office settings.
package settingdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/errorspkg"
	"github.com/caribfx/bureau/pkg/web"
)

// Service provides service layer interface needed by setting delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package settingdelivery
type Service interface {
	Upsert(ctx context.Context, key, value string) (domain.Setting, error)
	Get(ctx context.Context, key string) (domain.Setting, error)
	List(ctx context.Context) ([]domain.Setting, error)
	Delete(ctx context.Context, key string) error
}

// Handler facilitates setting delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns setting handler.
func NewHandler(ss Service) Handler {
	return Handler{service: ss}
}

type data struct {
	Setting domain.Setting `json:"setting"`
}
type response struct {
	Data data `json:"data,omitempty"`
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return err.Error()
}

type keyRequest struct {
	Key string `uri:"key" binding:"required,max=64"`
}

type upsertRequest struct {
	Value string `json:"value" binding:"required"`
}

// Upsert handles http request to create or replace a setting.
func (h *Handler) Upsert(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri keyRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	var req upsertRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	setting, err := h.service.Upsert(ctx, uri.Key, req.Value)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{setting}})
}

// Get handles http request to get a setting by key.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri keyRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	setting, err := h.service.Get(ctx, uri.Key)
	if err != nil {
		if err == domain.ErrSettingNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{setting}})
}

type dataSettings struct {
	Settings []domain.Setting `json:"settings"`
}
type responseSettings struct {
	Data dataSettings `json:"data,omitempty"`
}

// List handles http request to list all settings.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	settings, err := h.service.List(ctx)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, responseSettings{Data: dataSettings{settings}})
}

// Delete handles http request to remove a setting.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri keyRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	if err := h.service.Delete(ctx, uri.Key); err != nil {
		if err == domain.ErrSettingNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{})
}
