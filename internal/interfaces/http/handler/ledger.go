package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	ledgerapp "github.com/welfare/backend/internal/application/ledger"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/interfaces/http/dto"
	"github.com/welfare/backend/internal/interfaces/http/middleware"
)

// LedgerHandler exposes the chart of accounts and journal operations
type LedgerHandler struct {
	BaseHandler
	chart   *ledgerapp.ChartService
	journal *ledgerapp.JournalService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(chart *ledgerapp.ChartService, journal *ledgerapp.JournalService) *LedgerHandler {
	return &LedgerHandler{chart: chart, journal: journal}
}

// RegisterRoutes registers ledger routes on the given router group
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/ledger/accounts")
	{
		accounts.GET("", h.ListAccounts)
		accounts.POST("", h.CreateAccount)
		accounts.POST("/:code/deactivate", h.DeactivateAccount)
		accounts.GET("/:code/balance", h.GetBalance)
	}

	rg.GET("/ledger/trial-balance", h.TrialBalance)

	entries := rg.Group("/ledger/entries")
	{
		entries.POST("", h.OpenEntry)
		entries.GET("/:number", h.GetEntry)
		entries.POST("/:number/post", h.PostEntry)
		entries.POST("/:number/reverse", h.ReverseEntry)
		entries.DELETE("/:number", h.VoidDraft)
	}
}

// CreateAccount handles POST /ledger/accounts
func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req ledgerapp.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.chart.CreateAccount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// listAccountsQuery binds the account list query parameters
type listAccountsQuery struct {
	dto.ListRequest
	Type       string `form:"type" binding:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ActiveOnly bool   `form:"active_only"`
}

// ListAccounts handles GET /ledger/accounts
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	query := listAccountsQuery{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := ledger.AccountFilter{
		ActiveOnly: query.ActiveOnly,
	}
	filter.Page = query.Page
	filter.PageSize = query.PageSize
	filter.OrderBy = query.OrderBy
	filter.OrderDir = query.OrderDir
	filter.Search = query.Search
	if query.Type != "" {
		accountType := ledger.AccountType(query.Type)
		filter.Type = &accountType
	}

	accounts, total, err := h.chart.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, accounts, total, query.Page, query.PageSize)
}

// DeactivateAccount handles POST /ledger/accounts/:code/deactivate
func (h *LedgerHandler) DeactivateAccount(c *gin.Context) {
	code := c.Param("code")
	if err := h.chart.DeactivateAccount(c.Request.Context(), code); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetBalance handles GET /ledger/accounts/:code/balance
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	code := c.Param("code")

	var asOf *time.Time
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "as_of must be a YYYY-MM-DD date")
			return
		}
		asOf = &parsed
	}

	balance, err := h.chart.GetBalance(c.Request.Context(), code, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"code": code, "balance": balance})
}

// TrialBalance handles GET /ledger/trial-balance
func (h *LedgerHandler) TrialBalance(c *gin.Context) {
	report, err := h.chart.TrialBalance(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// OpenEntry handles POST /ledger/entries
func (h *LedgerHandler) OpenEntry(c *gin.Context) {
	var req ledgerapp.OpenEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = getActor(c)
	}

	resp, err := h.journal.OpenEntry(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetEntry handles GET /ledger/entries/:number
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	resp, err := h.journal.GetEntry(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PostEntry handles POST /ledger/entries/:number/post
func (h *LedgerHandler) PostEntry(c *gin.Context) {
	resp, err := h.journal.PostEntry(c.Request.Context(), c.Param("number"), getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// reverseEntryRequest binds the reversal body
type reverseEntryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReverseEntry handles POST /ledger/entries/:number/reverse
func (h *LedgerHandler) ReverseEntry(c *gin.Context) {
	var req reverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Reversal reason is required")
		return
	}

	resp, err := h.journal.ReverseEntry(c.Request.Context(), c.Param("number"), req.Reason, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VoidDraft handles DELETE /ledger/entries/:number
func (h *LedgerHandler) VoidDraft(c *gin.Context) {
	if err := h.journal.VoidDraft(c.Request.Context(), c.Param("number")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
