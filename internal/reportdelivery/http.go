// Package reportdelivery manages delivery layer of reporting.
package reportdelivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/pkg/errorspkg"
	"github.com/caribfx/bureau/pkg/web"
)

// Service provides service layer interface needed by report delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package reportdelivery
type Service interface {
	Summary(ctx context.Context, arg domain.SummaryParams) ([]domain.SummaryRow, error)
	ExportCSV(ctx context.Context, arg domain.SummaryParams, w io.Writer) error
}

// Handler facilitates report delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns report handler.
func NewHandler(rs Service) Handler {
	return Handler{service: rs}
}

type periodRequest struct {
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
}

const dateLayout = "2006-01-02"

// parsePeriod defaults to the current UTC day when bounds are omitted.
func parsePeriod(req periodRequest) (domain.SummaryParams, error) {
	fromDate := time.Now().UTC().Truncate(24 * time.Hour)
	toDate := fromDate.AddDate(0, 0, 1)

	if req.FromDate != "" {
		parsed, err := time.Parse(dateLayout, req.FromDate)
		if err != nil {
			return domain.SummaryParams{}, err
		}

		fromDate = parsed
	}

	if req.ToDate != "" {
		parsed, err := time.Parse(dateLayout, req.ToDate)
		if err != nil {
			return domain.SummaryParams{}, err
		}

		toDate = parsed.AddDate(0, 0, 1)
	}

	return domain.SummaryParams{FromDate: fromDate, ToDate: toDate}, nil
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return err.Error()
}

type summaryData struct {
	Summary []domain.SummaryRow `json:"summary"`
}
type summaryResponse struct {
	Data summaryData `json:"data,omitempty"`
}

// Summary handles http request to aggregate transactions by type and currency.
func (h *Handler) Summary(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req periodRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	arg, err := parsePeriod(req)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	summary, err := h.service.Summary(ctx, arg)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, summaryResponse{Data: summaryData{summary}})
}

// Export handles http request to download the period's transactions as CSV.
func (h *Handler) Export(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req periodRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	arg, err := parsePeriod(req)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	filename := fmt.Sprintf("transactions_%s.csv", arg.FromDate.Format(dateLayout))

	gctx.Header("Content-Type", "text/csv")
	gctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	gctx.Status(http.StatusOK)

	if err := h.service.ExportCSV(ctx, arg, gctx.Writer); err != nil {
		l.Error().Err(err).Send()
	}
}
