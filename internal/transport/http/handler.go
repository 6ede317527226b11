package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumapay/ledger-service/internal/repo"
	"github.com/lumapay/ledger-service/internal/service"
)

// RegisterHandlers mounts the v1 routes.
func RegisterHandlers(r *gin.Engine, svc *service.WalletService, maxLimit int, log *zap.SugaredLogger) {
	h := &handler{svc: svc, maxLimit: maxLimit, log: log}
	v1 := r.Group("/v1")
	{
		v1.POST("/wallets", h.createWallet)
		v1.GET("/wallets", h.listWallets)
		v1.GET("/wallets/:id/balance", h.balance)
		v1.GET("/wallets/:id/ledger", h.ledger)
		v1.POST("/transfers", h.transfer)
		v1.GET("/transactions/:walletId", h.transactions)
	}
}

type handler struct {
	svc      *service.WalletService
	maxLimit int
	log      *zap.SugaredLogger
}

type createWalletReq struct {
	Email  string `json:"email" binding:"required,email"`
	Amount string `json:"amount" binding:"required"`
}

func (h *handler) createWallet(c *gin.Context) {
	var req createWalletReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amt, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	res, err := h.svc.Mint(c, req.Email, amt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":             res.WalletID,
		"transaction_id": res.TransactionID,
		"balance":        res.Balance,
	})
}

func (h *handler) listWallets(c *gin.Context) {
	limit, offset := h.page(c)
	ws, err := h.svc.ListWallets(c, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (h *handler) balance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		return
	}
	bal, err := h.svc.GetBalance(c, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "balance": bal})
}

func (h *handler) ledger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		return
	}
	limit, offset := h.page(c)
	entries, err := h.svc.ListLedger(c, id, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type transferReq struct {
	FromID string `json:"from_id" binding:"required"`
	ToID   string `json:"to_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func (h *handler) transfer(c *gin.Context) {
	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fromID, err := uuid.Parse(req.FromID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_id"})
		return
	}
	toID, err := uuid.Parse(req.ToID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_id"})
		return
	}
	amt, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	res, err := h.svc.Transfer(c, fromID, toID, amt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transaction_id": res.TransactionID,
		"amount":         res.Amount,
		"new_balance":    res.NewBalance,
	})
}

func (h *handler) transactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("walletId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wallet id"})
		return
	}
	limit, offset := h.page(c)
	views, err := h.svc.ListTransactions(c, id, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// page reads limit/offset query params, capping limit at the configured
// maximum. Defaulting (limit 10, offset 0) is the store's concern.
func (h *handler) page(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return limit, offset
}

// respondError maps business failures to transport statuses: missing wallet
// is 404, insufficient funds and duplicate email are conflicts, same-account
// and bad amounts are bad requests, anything else is opaque.
func (h *handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repo.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repo.ErrInsufficientFunds), errors.Is(err, repo.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSameAccountTransfer), errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
