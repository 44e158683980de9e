package http

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"oddeven-service/internal/config"
	"oddeven-service/internal/rules"
	"oddeven-service/internal/service"
)

const dateLayout = "2006-01-02"

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

type Handler struct {
	pipeline  *service.PipelineService
	schedules *rules.Registry
	config    *config.Config
	log       zerolog.Logger
}

func NewHandler(
	pipeline *service.PipelineService,
	schedules *rules.Registry,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		pipeline:  pipeline,
		schedules: schedules,
		config:    cfg,
		log:       log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.GET("/healthz", h.health)

	public := r.Group("/api/v1")
	{
		public.POST("/captures", h.submitCapture)
		public.GET("/records", h.listRecords)
		public.GET("/reports", h.rangeReport)
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/schedule", h.currentSchedule)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) submitCapture(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("file is required"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, errorResponse("unsupported file type"))
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to read file"))
		return
	}

	captureTime := time.Now()
	if ts := strings.TrimSpace(c.PostForm("capture_time")); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid capture_time, expected RFC3339"))
			return
		}
		captureTime = parsed
	}

	rec, err := h.pipeline.ProcessCapture(c.Request.Context(), service.CaptureInput{
		Image:       image,
		ImageRef:    header.Filename,
		CaptureTime: captureTime,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(rec))
}

func (h *Handler) listRecords(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}

	records, err := h.pipeline.Records(c.Request.Context(), start, end)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) rangeReport(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}

	result, err := h.pipeline.RangeReport(c.Request.Context(), start, end)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) currentSchedule(c *gin.Context) {
	snapshot := h.schedules.Current()

	date := time.Now()
	if d := strings.TrimSpace(c.Query("date")); d != "" {
		parsed, err := time.Parse(dateLayout, d)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	c.JSON(http.StatusOK, gin.H{
		"version":          snapshot.Version(),
		"date":             date.Format(dateLayout),
		"restricted_class": snapshot.RestrictedClassFor(date),
	})
}

func (h *Handler) dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, errorResponse("from and to parameters are required"))
		return time.Time{}, time.Time{}, false
	}

	start, err := time.Parse(dateLayout, from)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid from date, expected YYYY-MM-DD"))
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid to date, expected YYYY-MM-DD"))
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrStorage):
		h.log.Error().Err(err).Msg("storage error")
		c.JSON(http.StatusServiceUnavailable, errorResponse("storage unavailable, retry later"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
