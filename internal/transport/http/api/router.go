package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tgescan/internal/logger"
	"tgescan/internal/service"
	"tgescan/internal/store/runlog"

	"github.com/gin-gonic/gin"
)

type Scanner interface {
	Scan(ctx context.Context, in service.Input) (service.Report, error)
}

type RunReader interface {
	List(ctx context.Context, limit int) ([]runlog.Run, error)
	Get(ctx context.Context, id string) (runlog.Run, error)
}

const maxRunsLimit = 200

type Router struct {
	scans Scanner
	runs  RunReader
}

func NewRouter(scans Scanner, runs RunReader) *Router {
	return &Router{scans: scans, runs: runs}
}

// Register 将 /api 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/scans", r.handleScan)
	group.GET("/runs", r.handleListRuns)
	group.GET("/runs/:id", r.handleGetRun)
}

// handleScan blocks until every exchange has been scanned.
func (r *Router) handleScan(c *gin.Context) {
	var in service.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	rep, err := r.scans.Scan(c.Request.Context(), in)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrNoInput):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrNoMatch):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrAmbiguousSymbol):
			status = http.StatusConflict
		}
		logger.Warnf("api scan failed: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) handleListRuns(c *gin.Context) {
	if r.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run log disabled"})
		return
	}
	limit := 20
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	runs, err := r.runs.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (r *Router) handleGetRun(c *gin.Context) {
	if r.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run log disabled"})
		return
	}
	run, err := r.runs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, runlog.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
