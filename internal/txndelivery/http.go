// Package txndelivery manages delivery layer of exchange transactions.
package txndelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/caribfx/bureau/internal/middleware"
	"github.com/caribfx/bureau/pkg/errorspkg"
	"github.com/caribfx/bureau/pkg/tokenpkg"
	"github.com/caribfx/bureau/pkg/web"
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package txndelivery
type Service interface {
	Create(ctx context.Context, createdBy string, arg domain.CreateTransactionParams) (domain.TransactionResult, error)
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
	Delete(ctx context.Context, username, role string, id int64) (domain.TransactionResult, error)
	UpdateDetails(ctx context.Context, username, role string, arg domain.UpdateTransactionDetailsParams) (domain.Transaction, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type createRequest struct {
	Type          string `json:"type" binding:"required,oneof=CASH_IN CASH_OUT BUY SELL"`
	Currency      string `json:"currency" binding:"required,currency"`
	Amount        string `json:"amount" binding:"required"`
	ExchangeRate  string `json:"exchange_rate"`
	AmountTTD     string `json:"amount_ttd"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email" binding:"omitempty,email"`
	Notes         string `json:"notes"`
}

type resultData struct {
	Transaction domain.Transaction `json:"transaction"`
	Accounts    []domain.Account   `json:"accounts"`
}

type resultResponse struct {
	Data resultData `json:"data,omitempty"`
}

func bindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return field.Field() + web.GetErrorMsg(field)
	}

	return err.Error()
}

func statusFromError(err error) int {
	switch err {
	case domain.ErrInvalidAmount,
		domain.ErrInvalidTransactionType,
		domain.ErrInsufficientBalance,
		domain.ErrAccountNotFound:
		return http.StatusBadRequest
	case domain.ErrNotAuthorized:
		return http.StatusForbidden
	case domain.ErrTransactionNotFound:
		return http.StatusNotFound
	case domain.ErrReferenceExhausted,
		domain.ErrConcurrencyConflict:
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

func respondError(gctx *gin.Context, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		err = errorspkg.ErrInternal
	}

	gctx.JSON(status, web.Error(err))
}

// Create handles http request to record a transaction.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	arg := domain.CreateTransactionParams{
		Type:          domain.TransactionType(req.Type),
		Currency:      req.Currency,
		Amount:        req.Amount,
		ExchangeRate:  req.ExchangeRate,
		AmountTTD:     req.AmountTTD,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
	}

	result, err := h.service.Create(ctx, authPayload.Username, arg)
	if err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	res := resultResponse{
		Data: resultData{
			Transaction: result.Transaction,
			Accounts:    result.Accounts,
		},
	}

	gctx.JSON(http.StatusOK, res)
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type txnData struct {
	Transaction domain.Transaction `json:"transaction"`
}

type txnResponse struct {
	Data txnData `json:"data,omitempty"`
}

// Get handles http request to get a transaction.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	txn, err := h.service.Get(ctx, req.ID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, txnResponse{Data: txnData{txn}})
}

type listRequest struct {
	FromDate  string `form:"from_date"`
	ToDate    string `form:"to_date"`
	Type      string `form:"type" binding:"omitempty,oneof=CASH_IN CASH_OUT BUY SELL"`
	Currency  string `form:"currency" binding:"omitempty,currency"`
	CreatedBy string `form:"created_by" binding:"omitempty,alphanum"`
	PageID    int32  `form:"page_id" binding:"required,min=1"`
	PageSize  int32  `form:"page_size" binding:"required,min=1,max=100"`
}

type listData struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type listResponse struct {
	Data listData `json:"data,omitempty"`
}

const dateLayout = "2006-01-02"

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	fromDate := time.Now().UTC().Truncate(24 * time.Hour)
	toDate := fromDate.AddDate(0, 0, 1)

	if from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		fromDate = parsed
	}

	if to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		toDate = parsed.AddDate(0, 0, 1)
	}

	return fromDate, toDate, nil
}

// List handles http request to list transactions.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	fromDate, toDate, err := parseDateRange(req.FromDate, req.ToDate)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	arg := domain.ListTransactionsParams{
		FromDate:  fromDate,
		ToDate:    toDate,
		Type:      domain.TransactionType(req.Type),
		Currency:  req.Currency,
		CreatedBy: req.CreatedBy,
		Limit:     req.PageSize,
		Offset:    (req.PageID - 1) * req.PageSize,
	}

	transactions, err := h.service.List(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, listResponse{Data: listData{transactions}})
}

type updateRequest struct {
	Notes         string `json:"notes"`
	Signature     string `json:"signature"`
	CustomerEmail string `json:"customer_email" binding:"omitempty,email"`
}

// Update handles http request to edit the non-financial fields of a transaction.
func (h *Handler) Update(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri getRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	var req updateRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	arg := domain.UpdateTransactionDetailsParams{
		ID:            uri.ID,
		Notes:         req.Notes,
		Signature:     req.Signature,
		CustomerEmail: req.CustomerEmail,
	}

	txn, err := h.service.UpdateDetails(ctx, authPayload.Username, authPayload.Role, arg)
	if err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, txnResponse{Data: txnData{txn}})
}

// Delete handles http request to delete a transaction, reversing its balance
// changes first.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: bindErrorMsg(err)})

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	result, err := h.service.Delete(ctx, authPayload.Username, authPayload.Role, req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	res := resultResponse{
		Data: resultData{
			Transaction: result.Transaction,
			Accounts:    result.Accounts,
		},
	}

	gctx.JSON(http.StatusOK, res)
}
