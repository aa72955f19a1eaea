package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenloop/binsim/internal/bin"
	"github.com/greenloop/binsim/internal/fleet"
)

const (
	defaultSimDuration = 60 // seconds
	defaultFillRate    = 1.0
)

var errBinNotFound = gin.H{"error": "Bin not found"}

// Server exposes the fleet over REST.
type Server struct {
	fleet *fleet.Fleet
}

// NewRouter builds the gin engine with the full API surface. metricsHandler
// and wsHandler are mounted when non-nil.
func NewRouter(f *fleet.Fleet, metricsHandler, wsHandler http.Handler) *gin.Engine {
	s := &Server{fleet: f}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
	if wsHandler != nil {
		r.GET("/ws", gin.WrapH(wsHandler))
	}

	api := r.Group("/api")
	{
		api.GET("/bins", s.listBins)
		api.POST("/bins", s.createBin)
		api.GET("/bins/:id", s.getBin)
		api.POST("/bins/:id/update", s.updateBin)
		api.POST("/bins/:id/simulate", s.simulateBin)
		api.POST("/bins/:id/stop", s.stopBin)
		api.DELETE("/bins/:id", s.deleteBin)
	}
	return r
}

func (s *Server) listBins(c *gin.Context) {
	c.JSON(http.StatusOK, s.fleet.ListBins())
}

type createRequest struct {
	Location json.RawMessage `json:"location"`
	Type     string          `json:"type"`
	Capacity float64         `json:"capacity"`
}

func (s *Server) createBin(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b := s.fleet.CreateBin(req.Location, req.Type, req.Capacity)
	c.JSON(http.StatusCreated, b)
}

func (s *Server) getBin(c *gin.Context) {
	b, ok := s.fleet.GetBin(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errBinNotFound)
		return
	}
	c.JSON(http.StatusOK, b)
}

type updateRequest struct {
	FillLevel    *float64 `json:"fillLevel"`
	Temperature  *float64 `json:"temperature"`
	BatteryLevel *float64 `json:"batteryLevel"`
	Status       *string  `json:"status"`
}

func (s *Server) updateBin(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	up := bin.Update{
		FillLevel:    req.FillLevel,
		Temperature:  req.Temperature,
		BatteryLevel: req.BatteryLevel,
		Status:       req.Status,
	}
	if !s.fleet.UpdateBin(c.Param("id"), up) {
		c.JSON(http.StatusNotFound, errBinNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bin updated"})
}

type simulateRequest struct {
	Duration float64 `json:"duration"` // seconds
	FillRate float64 `json:"fillRate"` // percent per tick, scaled by randomness
}

func (s *Server) simulateBin(c *gin.Context) {
	req := simulateRequest{Duration: defaultSimDuration, FillRate: defaultFillRate}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Duration <= 0 {
			req.Duration = defaultSimDuration
		}
		if req.FillRate <= 0 {
			req.FillRate = defaultFillRate
		}
	}
	duration := time.Duration(req.Duration * float64(time.Second))
	if !s.fleet.StartSimulation(c.Param("id"), duration, req.FillRate) {
		c.JSON(http.StatusNotFound, errBinNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Simulation started"})
}

func (s *Server) stopBin(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.fleet.GetBin(id); !ok {
		c.JSON(http.StatusNotFound, errBinNotFound)
		return
	}
	if s.fleet.StopSimulation(id) {
		c.JSON(http.StatusOK, gin.H{"message": "Simulation stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "No simulation running"})
}

func (s *Server) deleteBin(c *gin.Context) {
	if !s.fleet.DeleteBin(c.Param("id")) {
		c.JSON(http.StatusNotFound, errBinNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bin deleted"})
}
