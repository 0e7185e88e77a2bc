package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/welfare/backend/internal/domain/contribution"
	"github.com/welfare/backend/internal/interfaces/http/middleware"
)

type settingInfo struct {
	Default     string
	Description string
}

// knownSettings maps each configurable key to its effective default and a
// human-readable description, and doubles as the whitelist for writes.
var knownSettings = map[string]settingInfo{
	contribution.SettingContributionAmount:   {"50000", "Monthly contribution amount per member"},
	contribution.SettingPenaltyRate:          {"10", "Penalty percentage applied to unpaid contributions"},
	contribution.SettingApplyPenaltyToUnpaid: {"false", "Whether new penalty rates apply to existing unpaid penalties"},
	contribution.SettingPenaltyDueDay:        {"5", "Day of month on which contributions fall due"},
	contribution.SettingCashAccount:          {"1000", "Ledger account code for cash receipts"},
	contribution.SettingContributionRevenue:  {"4000", "Ledger account code for contribution revenue"},
	contribution.SettingPenaltyReceivable:    {"1100", "Ledger account code for penalties receivable"},
	contribution.SettingPenaltyIncomeAccount: {"4100", "Ledger account code for penalty income"},
}

// SettingsHandler exposes the flat key/value configuration store
type SettingsHandler struct {
	BaseHandler
	store contribution.SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(store contribution.SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers settings routes on the given router group
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settings := rg.Group("/settings")
	{
		settings.GET("/:key", h.GetSetting)
		settings.PUT("/:key", h.PutSetting)
	}
}

// GetSetting handles GET /settings/:key
func (h *SettingsHandler) GetSetting(c *gin.Context) {
	key := c.Param("key")
	info, ok := knownSettings[key]
	if !ok {
		h.NotFound(c, "Unknown setting: "+key)
		return
	}

	value, err := h.store.Get(c.Request.Context(), key, info.Default)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"key": key, "value": value})
}

// putSettingRequest binds the settings update body
type putSettingRequest struct {
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

// PutSetting handles PUT /settings/:key
func (h *SettingsHandler) PutSetting(c *gin.Context) {
	key := c.Param("key")
	info, ok := knownSettings[key]
	if !ok {
		h.NotFound(c, "Unknown setting: "+key)
		return
	}

	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if err := contribution.ValidateSettingValue(key, req.Value); err != nil {
		h.HandleError(c, err)
		return
	}
	if req.Description == "" {
		req.Description = info.Description
	}

	if err := h.store.Set(c.Request.Context(), key, req.Value, req.Description); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"key": key, "value": req.Value})
}
