package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	contributionapp "github.com/welfare/backend/internal/application/contribution"
	"github.com/welfare/backend/internal/interfaces/http/middleware"
)

// ContributionHandler exposes payment recording, member statements and
// penalty operations
type ContributionHandler struct {
	BaseHandler
	payments  *contributionapp.PaymentService
	penalties *contributionapp.PenaltyService
}

// NewContributionHandler creates a new ContributionHandler
func NewContributionHandler(payments *contributionapp.PaymentService, penalties *contributionapp.PenaltyService) *ContributionHandler {
	return &ContributionHandler{payments: payments, penalties: penalties}
}

// RegisterRoutes registers contribution routes on the given router group
func (h *ContributionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments", h.RecordPayment)
	rg.GET("/members/:id/statement", h.MemberStatement)

	penalties := rg.Group("/penalties")
	{
		penalties.POST("/assess", h.AssessPenalties)
		penalties.POST("/recalculate", h.Recalculate)
		penalties.POST("/:id/pay", h.MarkPaid)
	}
}

// RecordPayment handles POST /payments
func (h *ContributionHandler) RecordPayment(c *gin.Context) {
	var req contributionapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	req.RecordedBy = getActor(c)

	result, err := h.payments.RecordPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// MemberStatement handles GET /members/:id/statement
func (h *ContributionHandler) MemberStatement(c *gin.Context) {
	memberID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid member ID format")
		return
	}

	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "as_of must be a YYYY-MM-DD date")
			return
		}
		asOf = parsed
	}

	lines, err := h.payments.MemberStatement(c.Request.Context(), memberID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"member_id": memberID, "as_of": asOf.Format("2006-01-02"), "lines": lines})
}

// assessRequest binds the penalty assessment body. All fields are optional;
// an empty body assesses all active members as of today.
type assessRequest struct {
	RunDate  string     `json:"run_date" binding:"omitempty,datetime=2006-01-02"`
	MemberID *uuid.UUID `json:"member_id"`
	Force    bool       `json:"force"`
	DryRun   bool       `json:"dry_run"`
}

// AssessPenalties handles POST /penalties/assess
func (h *ContributionHandler) AssessPenalties(c *gin.Context) {
	var req assessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	runDate := time.Now()
	if req.RunDate != "" {
		runDate, _ = time.Parse("2006-01-02", req.RunDate)
	}

	result, err := h.penalties.AssessPenalties(c.Request.Context(), contributionapp.AssessmentRequest{
		RunDate:  runDate,
		MemberID: req.MemberID,
		Force:    req.Force,
		DryRun:   req.DryRun,
		Actor:    getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// recalculateRequest binds the penalty recalculation body
type recalculateRequest struct {
	ContributionAmount decimal.Decimal `json:"contribution_amount" binding:"required"`
	PenaltyRate        decimal.Decimal `json:"penalty_rate" binding:"required"`
}

// Recalculate handles POST /penalties/recalculate
func (h *ContributionHandler) Recalculate(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.penalties.RecalculateUnpaid(c.Request.Context(), req.ContributionAmount, req.PenaltyRate, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// MarkPaid handles POST /penalties/:id/pay
func (h *ContributionHandler) MarkPaid(c *gin.Context) {
	penaltyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid penalty ID format")
		return
	}

	if err := h.penalties.MarkPenaltyPaid(c.Request.Context(), penaltyID, getActor(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
