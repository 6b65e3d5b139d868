package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/csvshare-backend/internal/http/response"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/services"
)

type CSVHandler struct {
	log          *logger.Logger
	csvService   services.CSVService
	chartService services.ChartService
}

func NewCSVHandler(log *logger.Logger, csvService services.CSVService, chartService services.ChartService) *CSVHandler {
	return &CSVHandler{
		log:          log.With("handler", "CSVHandler"),
		csvService:   csvService,
		chartService: chartService,
	}
}

// GET /api/csv
func (h *CSVHandler) List(c *gin.Context) {
	files, err := h.csvService.List(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, files)
}

// GET /api/csv/:id
func (h *CSVHandler) Content(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	content, err := h.csvService.Content(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, content)
}

// GET /api/csv/:id/download
func (h *CSVHandler) Download(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	record, rc, err := h.csvService.Open(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": record.Filename}))
	c.Header("Content-Length", strconv.FormatInt(record.Size, 10))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("Download interrupted", "csv_id", id, "error", err)
	}
}

// GET /api/csv/:id/chart.png?x=&y=
func (h *CSVHandler) Chart(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	png, err := h.chartService.Render(c.Request.Context(), id, c.Query("x"), c.Query("y"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", 60))
	c.Data(http.StatusOK, "image/png", png)
}
