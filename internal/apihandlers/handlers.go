package apihandlers

import (
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/app"
	"taskmarket/internal/ledger"
	"taskmarket/internal/models"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{App: a}
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(router *gin.Engine, h *APIHandler) {
	v1 := router.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", h.ListJobsHandler)
			jobs.POST("", h.SubmitJobHandler)
			jobs.GET("/:id", h.GetJobHandler)
			jobs.POST("/:id/claim", h.ClaimHandler)
			jobs.POST("/:id/complete", h.CompleteHandler)
			jobs.POST("/:id/verify", h.VerifyHandler)
			jobs.POST("/:id/reject", h.RejectHandler)
		}
		v1.GET("/balance/:address", h.BalanceHandler)
		v1.POST("/refresh", h.RefreshHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type SubmitJobRequest struct {
	Actor       string `json:"actor" binding:"required"`
	Description string `json:"description" binding:"required"`
	// Reward is a decimal string in the ledger's smallest unit; amounts can
	// exceed what fits in a JSON number.
	Reward   string    `json:"reward" binding:"required"`
	Deadline time.Time `json:"deadline" binding:"required"`
}

func (h *APIHandler) SubmitJobHandler(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	reward, ok := new(big.Int).SetString(req.Reward, 10)
	if !ok {
		BadRequest(c, "Invalid reward amount: "+req.Reward)
		return
	}

	jobID, err := h.App.Lifecycle.Submit(c.Request.Context(), ledger.SubmitParams{
		Description: req.Description,
		Reward:      reward,
		Deadline:    req.Deadline,
	}, h.App.SignerFor(req.Actor))
	if err != nil {
		ActionFailed(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"job_id": jobID}})
}

// actionRequest covers claim/complete/verify/reject bodies.
type actionRequest struct {
	Actor  string `json:"actor" binding:"required"`
	Result string `json:"result,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (h *APIHandler) ClaimHandler(c *gin.Context) {
	h.runAction(c, func(req actionRequest, jobID string) error {
		return h.App.Lifecycle.Claim(c.Request.Context(), jobID, h.App.SignerFor(req.Actor))
	})
}

func (h *APIHandler) CompleteHandler(c *gin.Context) {
	h.runAction(c, func(req actionRequest, jobID string) error {
		return h.App.Lifecycle.Complete(c.Request.Context(), jobID, req.Result, h.App.SignerFor(req.Actor))
	})
}

func (h *APIHandler) VerifyHandler(c *gin.Context) {
	h.runAction(c, func(req actionRequest, jobID string) error {
		return h.App.Lifecycle.Verify(c.Request.Context(), jobID, h.App.SignerFor(req.Actor))
	})
}

func (h *APIHandler) RejectHandler(c *gin.Context) {
	h.runAction(c, func(req actionRequest, jobID string) error {
		return h.App.Lifecycle.Reject(c.Request.Context(), jobID, req.Reason, h.App.SignerFor(req.Actor))
	})
}

func (h *APIHandler) runAction(c *gin.Context, action func(actionRequest, string) error) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	jobID := c.Param("id")
	if err := action(req, jobID); err != nil {
		ActionFailed(c, err)
		return
	}
	job, known := h.App.Cache.Get(jobID)
	resp := gin.H{"status": "ok"}
	if known && job.Present {
		resp["job"] = job.Job
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListJobsHandler returns the cached job view for an address, refreshing
// first so a UI poll always reads through the single-flight path.
func (h *APIHandler) ListJobsHandler(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		BadRequest(c, "Missing required query parameter: address")
		return
	}
	if err := h.App.Poller.RefreshNow(c.Request.Context(), address); err != nil {
		ActionFailed(c, err)
		return
	}
	jobs := h.App.Cache.List(address)
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"jobs": jobs}})
}

// GetJobHandler is an explicit status query: it re-verifies against the
// ledger instead of trusting the cached record.
func (h *APIHandler) GetJobHandler(c *gin.Context) {
	jobID := c.Param("id")
	snap, err := h.App.Lifecycle.Lookup(c.Request.Context(), jobID)
	if err != nil {
		ActionFailed(c, err)
		return
	}
	if !snap.Present {
		JSONError(c, http.StatusGone, string(models.KindDeleted), "Job "+jobID+" was deleted on the ledger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"job": snap.Job}})
}

func (h *APIHandler) BalanceHandler(c *gin.Context) {
	address := c.Param("address")
	balance, err := h.App.Balances.Balance(c.Request.Context(), address)
	if err != nil {
		ActionFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"address": address, "balance": balance.String()}})
}

type refreshRequest struct {
	Address string `json:"address" binding:"required"`
}

func (h *APIHandler) RefreshHandler(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := h.App.Poller.RefreshNow(c.Request.Context(), req.Address); err != nil {
		ActionFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"status": "refreshed"}})
}
