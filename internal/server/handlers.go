package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hakim/reconaug/internal/historic"
	"github.com/hakim/reconaug/internal/jobs"
	"github.com/hakim/reconaug/internal/models"
	"github.com/hakim/reconaug/internal/pipeline"
	"github.com/hakim/reconaug/internal/portscan"
)

type scanRequest struct {
	Domain string `json:"domain" form:"domain"`
	Preset string `json:"preset" form:"preset"`
}

type portScanRequest struct {
	Host string `json:"host" form:"host"`
}

type historicalURLsRequest struct {
	Domain string `json:"domain" form:"domain"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTools(c *gin.Context) {
	avail := map[string]bool{}
	if probe := s.orch.ToolProbe(); probe != nil {
		avail = probe.Available(c.Request.Context())
	}
	c.JSON(http.StatusOK, avail)
}

func (s *Server) handleStartScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := s.orch.StartScan(pipeline.ScanRequest{Domain: req.Domain, Preset: req.Preset})
	s.respondStarted(c, id, err)
}

func (s *Server) handleStartPortScan(c *gin.Context) {
	var req portScanRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := s.orch.StartPortScan(req.Host)
	s.respondStarted(c, id, err)
}

func (s *Server) handleStartHistoricalURLs(c *gin.Context) {
	var req historicalURLsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := s.orch.StartHistoricalURLs(req.Domain)
	s.respondStarted(c, id, err)
}

// respondStarted maps a Start* result onto the response. No job exists
// when err is non-nil.
func (s *Server) respondStarted(c *gin.Context, id string, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"task_id": id})
	case errors.Is(err, pipeline.ErrInvalidTarget), errors.Is(err, pipeline.ErrOutOfScope):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, portscan.ErrNaabuUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("Failed to start job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleTask(c *gin.Context) {
	snap, ok := s.orch.Registry().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": jobs.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// handleTaskEvents streams job snapshots as server-sent events until the
// job finishes or the client goes away. Disconnecting never stops the job.
func (s *Server) handleTaskEvents(c *gin.Context) {
	events := s.orch.Registry().Subscribe(c.Request.Context(), c.Param("id"))

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}

		switch ev.Type {
		case jobs.EventNotFound:
			c.SSEvent("error", gin.H{"error": jobs.ErrNotFound.Error()})
			return false
		case jobs.EventHeartbeat:
			c.SSEvent("heartbeat", gin.H{"id": ev.Snapshot.ID, "progress": ev.Snapshot.Progress})
		default:
			c.SSEvent("update", ev.Snapshot)
		}
		return !ev.Snapshot.Complete
	})
}

func (s *Server) handleListScans(c *gin.Context) {
	scans, err := s.store.ListAllScans()
	if err != nil {
		s.internalError(c, err)
		return
	}
	if scans == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (s *Server) handleGetScan(c *gin.Context) {
	scan, err := s.store.GetScan(c.Param("id"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	if scan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (s *Server) handleScanHistoricalURLs(c *gin.Context) {
	id := c.Param("id")

	scan, err := s.store.GetScan(id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if scan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return
	}

	urls, err := s.store.GetHistoricalURLs(id)
	if err != nil {
		s.internalError(c, err)
		return
	}

	capped, limited := historic.Cap(urls)
	c.JSON(http.StatusOK, gin.H{
		"scan_id": id,
		"urls":    capped,
		"count":   len(urls),
		"limited": limited,
	})
}

func (s *Server) handleHostPorts(c *gin.Context) {
	host, scanID, err := s.store.GetHost(c.Param("id"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	if host == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "host not found"})
		return
	}

	ports := host.Ports
	if ports == nil {
		ports = []models.Port{}
	}
	c.JSON(http.StatusOK, gin.H{
		"host_id": host.ID,
		"url":     host.URL,
		"scan_id": scanID,
		"ports":   ports,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats()
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleClearDatabase(c *gin.Context) {
	if err := s.store.Clear(); err != nil {
		s.internalError(c, err)
		return
	}
	s.log.Warn("Database cleared")
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Database cleared successfully"})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.WithError(err).WithField("path", c.Request.URL.Path).Error("Store query failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
