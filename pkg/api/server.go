// Package api provides the REST API server for beatsmith
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/soundfold/beatsmith/pkg/beatmap"
	"github.com/soundfold/beatsmith/pkg/editor"
	"github.com/soundfold/beatsmith/pkg/export"
	"github.com/soundfold/beatsmith/pkg/grid"
	"github.com/soundfold/beatsmith/pkg/peaks"
)

// @title Beatsmith API
// @version 1.0
// @description API for batch beatmap operations: cleanup, grid snapping, peak detection and MIDI export
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/lanes", listLanes)
		v1.POST("/beatmap/cleanup", handleCleanup)
		v1.POST("/beatmap/snap", handleSnap)
		v1.POST("/beatmap/export/midi", handleExportMIDI)
		v1.POST("/analyze/peaks", handleDetectPeaks)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "beatsmith",
	})
}

// listLanes godoc
// @Summary List beatmap lanes
// @Description Returns the supported instrument lanes and difficulty levels
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/lanes [get]
func listLanes(c *gin.Context) {
	levels := make([]gin.H, 0, len(beatmap.LevelNames))
	for lvl := beatmap.LevelEasy; lvl <= beatmap.LevelHard; lvl++ {
		levels = append(levels, gin.H{"level": lvl, "name": beatmap.LevelNames[lvl]})
	}
	c.JSON(http.StatusOK, gin.H{
		"lanes":  beatmap.Lanes,
		"levels": levels,
	})
}

func bindBeatmap(c *gin.Context) *beatmap.Beatmap {
	var bm beatmap.Beatmap
	if err := c.ShouldBindJSON(&bm); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid beatmap: " + err.Error()})
		return nil
	}
	return &bm
}

// handleCleanup godoc
// @Summary Remove duplicate markers
// @Description Upload a beatmap and receive it back with duplicate markers removed
// @Tags beatmap
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/beatmap/cleanup [post]
func handleCleanup(c *gin.Context) {
	bm := bindBeatmap(c)
	if bm == nil {
		return
	}
	session := editor.NewSession()
	session.Beatmap = bm
	toRemove := session.FindDuplicates()
	bm.RemoveNotes(toRemove)
	c.JSON(http.StatusOK, gin.H{
		"removed": len(toRemove),
		"beatmap": bm,
	})
}

// handleSnap godoc
// @Summary Snap markers to the beat grid
// @Description Upload a beatmap and receive it back with every marker snapped to the nearest grid position
// @Tags beatmap
// @Accept json
// @Produce json
// @Param subdivision query int false "Beat subdivision (default: 4)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/beatmap/snap [post]
func handleSnap(c *gin.Context) {
	bm := bindBeatmap(c)
	if bm == nil {
		return
	}
	subdivision, err := strconv.Atoi(c.DefaultQuery("subdivision", "4"))
	if err != nil || subdivision < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subdivision"})
		return
	}
	if bm.Meta.BPM <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Beatmap has no BPM"})
		return
	}

	g := grid.Generate(bm.Meta.BPM, bm.Meta.TotalDuration, subdivision)
	moved := 0
	for _, n := range bm.Notes() {
		snapped := grid.Snap(n.Time, g)
		if snapped != n.Time {
			n.Time = snapped
			moved++
		}
	}
	bm.Sort()
	c.JSON(http.StatusOK, gin.H{
		"moved":   moved,
		"beatmap": bm,
	})
}

// handleExportMIDI godoc
// @Summary Export a beatmap as MIDI
// @Description Upload a beatmap and receive a Standard MIDI File
// @Tags beatmap
// @Accept json
// @Produce application/octet-stream
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/beatmap/export/midi [post]
func handleExportMIDI(c *gin.Context) {
	bm := bindBeatmap(c)
	if bm == nil {
		return
	}
	data, err := export.NewMIDIExporter().Generate(bm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputName := "beatmap.mid"
	if bm.Meta.Filename != "" {
		outputName = bm.Meta.Filename + ".mid"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, "audio/midi", data)
}

type peaksRequest struct {
	Envelope         []float64 `json:"envelope" binding:"required"`
	Duration         float64   `json:"duration" binding:"required"`
	ThresholdPercent float64   `json:"threshold_percent"`
	RearmPercent     float64   `json:"rearm_percent"`
	MinGap           float64   `json:"min_gap"`
}

// handleDetectPeaks godoc
// @Summary Detect peaks in an amplitude envelope
// @Description Runs hysteresis peak detection over an uploaded envelope and returns peak times
// @Tags analyze
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/analyze/peaks [post]
func handleDetectPeaks(c *gin.Context) {
	var req peaksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.ThresholdPercent <= 0 {
		req.ThresholdPercent = peaks.DefaultThresholdPercent
	}
	if req.RearmPercent == 0 {
		req.RearmPercent = -1
	}
	if req.MinGap <= 0 {
		req.MinGap = peaks.MinPeakGapSeconds
	}

	times := peaks.Detect(req.Envelope, req.Duration, req.ThresholdPercent, req.RearmPercent, req.MinGap)
	c.JSON(http.StatusOK, gin.H{
		"count": len(times),
		"peaks": times,
	})
}
