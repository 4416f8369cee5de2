package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vzahanych/styleai/internal/profile"
	"github.com/vzahanych/styleai/internal/recommend"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/shopping"
	"github.com/vzahanych/styleai/internal/skintone"
)

const msgUpstream = "recommendation service unavailable."

func errorJSON(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"status": "error",
		"error":  msg,
	})
}

// readUpload reads the multipart "image" field within the configured size limit.
// It writes the error response itself and returns false on failure.
func (s *Server) readUpload(c *gin.Context) ([]byte, bool) {
	limit := s.config.MaxUploadBytes
	if limit > 0 && c.Request.ContentLength > limit {
		s.tooLarge(c)
		return nil, false
	}
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.tooLarge(c)
			return nil, false
		}
		errorJSON(c, http.StatusBadRequest, "no image uploaded.")
		return nil, false
	}
	if limit > 0 && fh.Size > limit {
		s.tooLarge(c)
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "could not read uploaded image.")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "could not read uploaded image.")
		return nil, false
	}
	return data, true
}

func (s *Server) tooLarge(c *gin.Context) {
	errorJSON(c, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("image exceeds the %s upload limit.", humanize.IBytes(uint64(s.config.MaxUploadBytes))))
}

// handleAnalyze runs the profile pipeline, then fetches recommendations for accepted profiles
func (s *Server) handleAnalyze(c *gin.Context) {
	if s.analyzer == nil || s.recommender == nil {
		errorJSON(c, http.StatusServiceUnavailable, "analysis not available.")
		return
	}

	data, ok := s.readUpload(c)
	if !ok {
		return
	}

	req, err := profile.NewRequest(data, c.PostForm("gender"), c.PostForm("age"))
	if err != nil {
		s.writePipelineError(c, err)
		return
	}
	req.ID = uuid.NewString()

	prof, err := s.analyzer.Run(c.Request.Context(), req)
	if err != nil {
		s.writePipelineError(c, err)
		return
	}

	if !prof.Accepted {
		c.JSON(http.StatusBadRequest, rejectionJSON(prof))
		return
	}

	tone := prof.SkinTone.String()
	text, err := s.recommender.Recommend(c.Request.Context(), recommend.Query{
		SkinTone:      tone,
		SkinToneLabel: prof.SkinTone.Label,
		Gender:        prof.DeclaredGender,
		AgeGroup:      string(prof.AgeGroup),
	})
	if err != nil {
		s.LogError("Recommendation failed", err,
			"analysis_id", prof.AnalysisID,
			"request_id", c.GetString(requestIDKey),
		)
		errorJSON(c, http.StatusBadGateway, msgUpstream)
		return
	}

	links := shopping.BuildLinks(prof.DeclaredGender, tone)

	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"analysis_id":      prof.AnalysisID,
		"skin_tone":        tone,
		"skin_tone_detail": prof.SkinTone,
		"gender":           prof.DeclaredGender,
		"detected_gender":  prof.DetectedGender,
		"confidence":       prof.Confidence,
		"estimator_mode":   prof.EstimatorMode,
		"age_group":        prof.AgeGroup,
		"recommendations":  text,
		"shopping_links":   links,
		"amazon_link":      links.AmazonLink(),
	})
}

func (s *Server) writePipelineError(c *gin.Context, err error) {
	var ve *profile.ValidationError
	if errors.As(err, &ve) {
		errorJSON(c, http.StatusBadRequest, ve.Message)
		return
	}
	s.LogError("Profile pipeline failed", err, "request_id", c.GetString(requestIDKey))
	errorJSON(c, http.StatusInternalServerError, "analysis failed.")
}

func rejectionJSON(prof *profile.Profile) gin.H {
	r := prof.Rejection
	body := gin.H{
		"status":      "rejected",
		"analysis_id": prof.AnalysisID,
		"reason":      r.Reason,
		"error":       r.Message,
		"stage":       prof.Stage,
	}
	if r.Reason == profile.ReasonMismatch {
		body["declared_gender"] = r.Declared
		body["detected_gender"] = r.Detected
		body["confidence"] = r.Confidence
	}
	return body
}

// handleSkinTone classifies the central region of an upload without any gate
func (s *Server) handleSkinTone(c *gin.Context) {
	data, ok := s.readUpload(c)
	if !ok {
		return
	}

	res := skintone.ClassifyBytes(data)
	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"skin_tone":        res.String(),
		"skin_tone_detail": res,
	})
}

// handleShoppingLinks templates retailer links for a gender and skin tone
func (s *Server) handleShoppingLinks(c *gin.Context) {
	g := strings.TrimSpace(c.Query("gender"))
	tone := strings.TrimSpace(c.Query("skin_tone"))
	if g == "" || tone == "" {
		errorJSON(c, http.StatusBadRequest, "gender and skin_tone are required.")
		return
	}

	links := shopping.BuildLinks(g, tone)
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"shopping_links": links,
		"amazon_link":    links.AmazonLink(),
	})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "web-server",
	})
}

// handleStatus handles the system status endpoint
func (s *Server) handleStatus(c *gin.Context) {
	uptime := time.Since(s.startTime)

	health := "healthy"
	if s.GetStatus().GetStatus() != service.StatusRunning {
		health = "unhealthy"
	}

	body := gin.H{
		"status":         health,
		"uptime":         uptime.Round(time.Second).String(),
		"uptime_seconds": int64(uptime.Seconds()),
		"version":        s.version,
		"timestamp":      time.Now().Format(time.RFC3339),
	}
	if s.modelStatus != nil {
		st := s.modelStatus.Status(c.Request.Context())
		body["estimator_mode"] = st.Mode
		body["estimator"] = st
	}

	c.JSON(http.StatusOK, body)
}

// handleStats returns persisted accept/reject counters
func (s *Server) handleStats(c *gin.Context) {
	if s.stats == nil {
		errorJSON(c, http.StatusServiceUnavailable, "stats not available.")
		return
	}

	stats, err := s.stats.OutcomeCounts(c.Request.Context())
	if err != nil {
		s.LogError("Failed to read stats", err)
		errorJSON(c, http.StatusInternalServerError, "failed to read stats.")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleMetrics returns the telemetry snapshot, or counter lines with ?format=text
func (s *Server) handleMetrics(c *gin.Context) {
	if c.Query("format") == "text" {
		if s.registry == nil {
			c.String(http.StatusServiceUnavailable, "metrics not available\n")
			return
		}
		c.String(http.StatusOK, strings.Join(s.registry.SnapshotLines(), "\n")+"\n")
		return
	}

	if s.metrics == nil {
		errorJSON(c, http.StatusServiceUnavailable, "metrics not available.")
		return
	}

	c.JSON(http.StatusOK, s.metrics.Last(c.Request.Context()))
}
