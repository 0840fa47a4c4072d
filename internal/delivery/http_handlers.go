package delivery

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"creativelens/internal/domain"
	"creativelens/internal/usecase"
	"creativelens/pkg/logger"

	"github.com/gin-gonic/gin"
)

// handles HTTP requests
type HTTPHandlers struct {
	storage     *usecase.StorageService
	clients     *usecase.ClientService
	imports     *usecase.ImportService
	performance *usecase.PerformanceService
	links       *usecase.LinkService
	analysis    *usecase.AnalysisService
	logger      *logger.Logger
}

func NewHTTPHandlers(
	storage *usecase.StorageService,
	clients *usecase.ClientService,
	imports *usecase.ImportService,
	performance *usecase.PerformanceService,
	links *usecase.LinkService,
	analysis *usecase.AnalysisService,
	logger *logger.Logger,
) *HTTPHandlers {
	return &HTTPHandlers{
		storage:     storage,
		clients:     clients,
		imports:     imports,
		performance: performance,
		links:       links,
		analysis:    analysis,
		logger:      logger,
	}
}

// formFile adapts a multipart upload to domain.UploadedFile.
type formFile struct {
	header *multipart.FileHeader
}

func (f formFile) Name() string { return f.header.Filename }

func (f formFile) Open() (io.ReadCloser, error) { return f.header.Open() }

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	status := h.storage.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "creativelens",
		"version":    "1.0.0",
		"storage":    status,
		"request_id": c.GetString("request_id"),
	})
}

// GetAPIInfo lists the v1 endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_version": "v1",
		"service":     "creativelens",
		"description": "Creative analysis reconciled with ad performance reports",
		"endpoints": []string{
			"GET /api/v1/storage/status",
			"POST /api/v1/storage/connect",
			"DELETE /api/v1/storage/data",
			"POST /api/v1/storage/reset",
			"GET /api/v1/clients",
			"POST /api/v1/clients",
			"DELETE /api/v1/clients/:id",
			"POST /api/v1/imports",
			"GET /api/v1/performance/summaries",
			"GET /api/v1/clients/:id/performance",
			"POST /api/v1/clients/:id/performance/link",
			"POST /api/v1/clients/:id/performance/bulk-link",
			"GET /api/v1/clients/:id/history",
			"POST /api/v1/clients/:id/creatives/analyze",
			"POST /api/v1/creatives/lookup",
		},
		"request_id": c.GetString("request_id"),
	})
}

func (h *HTTPHandlers) StorageStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.storage.Status())
}

func (h *HTTPHandlers) StorageConnect(c *gin.Context) {
	status, err := h.storage.Connect(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *HTTPHandlers) ClearAllData(c *gin.Context) {
	if err := h.storage.ClearAllData(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "All client data cleared",
		"request_id": c.GetString("request_id"),
	})
}

func (h *HTTPHandlers) FactoryReset(c *gin.Context) {
	if err := h.storage.FactoryReset(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Storage reset",
		"request_id": c.GetString("request_id"),
	})
}

func (h *HTTPHandlers) ListClients(c *gin.Context) {
	clients, err := h.clients.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients, "count": len(clients)})
}

func (h *HTTPHandlers) CreateClient(c *gin.Context) {
	var in usecase.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, "Invalid request body", err.Error())
		return
	}
	client, err := h.clients.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *HTTPHandlers) DeleteClient(c *gin.Context) {
	if err := h.clients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportReport accepts a multipart "report" spreadsheet.
func (h *HTTPHandlers) ImportReport(c *gin.Context) {
	header, err := c.FormFile("report")
	if err != nil {
		h.formError(c, err, "Missing report", "Upload the .xlsx report in the 'report' field")
		return
	}
	createMissing, _ := strconv.ParseBool(c.PostForm("create_missing"))

	f, err := header.Open()
	if err != nil {
		h.badRequest(c, "Unreadable report", err.Error())
		return
	}
	defer f.Close()

	result, err := h.imports.Import(c.Request.Context(), header.Filename, f, createMissing)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandlers) GetSummaries(c *gin.Context) {
	window, err := h.performance.ResolveWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	summaries, err := h.performance.Summaries(c.Request.Context(), window)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": summaries,
		"from": window.Start.Format(domain.DateLayout),
		"to":   window.End.Format(domain.DateLayout),
	})
}

func (h *HTTPHandlers) GetPerformance(c *gin.Context) {
	window, err := h.performance.ResolveWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	mode := domain.ParseFilterMode(c.Query("filter"))

	ads, err := h.performance.GetAggregated(c.Request.Context(), c.Param("id"), window, mode)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   ads,
		"count":  len(ads),
		"filter": mode,
		"from":   window.Start.Format(domain.DateLayout),
		"to":     window.End.Format(domain.DateLayout),
	})
}

// LinkCreative attaches the multipart "file" to the ad named by "ad_name".
func (h *HTTPHandlers) LinkCreative(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err, "Missing file", "Upload the creative in the 'file' field")
		return
	}
	adName := c.PostForm("ad_name")
	if adName == "" {
		h.badRequest(c, "Missing ad name", "Provide the ad in the 'ad_name' field")
		return
	}

	result, err := h.links.LinkCreative(c.Request.Context(), c.Param("id"), adName, formFile{header: header})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BulkLink matches the multipart "files" against the window's unmatched ads.
func (h *HTTPHandlers) BulkLink(c *gin.Context) {
	window, err := h.performance.ResolveWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.writeError(c, err)
			return
		}
		h.writeError(c, domain.ErrNoFiles)
		return
	}
	headers := form.File["files"]
	files := make([]domain.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, formFile{header: fh})
	}

	result, err := h.links.BulkLink(c.Request.Context(), c.Param("id"), window, files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandlers) GetHistory(c *gin.Context) {
	entries, err := h.analysis.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "count": len(entries)})
}

// AnalyzeCreative runs the analyzer on the multipart "file" for the client.
func (h *HTTPHandlers) AnalyzeCreative(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err, "Missing file", "Upload the creative in the 'file' field")
		return
	}

	in := usecase.AnalyzeInput{
		ClientID:    c.Param("id"),
		File:        formFile{header: header},
		ContentType: header.Header.Get("Content-Type"),
		Language:    domain.ParseLanguage(c.PostForm("language")),
	}
	if raw := c.PostForm("format"); raw != "" {
		format, ok := domain.ParseFormatGroup(raw)
		if !ok {
			h.badRequest(c, "Invalid format", "Format must be SQUARE_LIKE or VERTICAL")
			return
		}
		in.Format = format
	}

	outcome, err := h.analysis.Analyze(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	if outcome.Failed {
		status = http.StatusBadGateway
	}
	c.JSON(status, outcome)
}

// LookupCreative reports whether the multipart "file" was analyzed before.
func (h *HTTPHandlers) LookupCreative(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.formError(c, err, "Missing file", "Upload the creative in the 'file' field")
		return
	}
	prior, err := h.analysis.FindPrior(c.Request.Context(), formFile{header: header})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": prior != nil, "prior": prior})
}

func (h *HTTPHandlers) badRequest(c *gin.Context, title, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":      title,
		"message":    message,
		"request_id": c.GetString("request_id"),
	})
}

// formError reports a failed multipart parse. An oversized body is a 413, anything else a 400.
func (h *HTTPHandlers) formError(c *gin.Context, err error, title, message string) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.writeError(c, err)
		return
	}
	h.badRequest(c, title, message)
}

// writeError maps domain errors to status codes. Anything unrecognised is a 500.
func (h *HTTPHandlers) writeError(c *gin.Context, err error) {
	status, title := http.StatusInternalServerError, "Internal error"
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		status, title = http.StatusServiceUnavailable, "Storage not connected"
	case errors.Is(err, domain.ErrClientNotFound):
		status, title = http.StatusNotFound, "Client not found"
	case errors.Is(err, domain.ErrAdNotFound):
		status, title = http.StatusNotFound, "Ad not found"
	case errors.Is(err, domain.ErrStorageQuotaExceeded):
		status, title = http.StatusInsufficientStorage, "Storage full"
	case errors.Is(err, domain.ErrAnalysisFailed):
		status, title = http.StatusBadGateway, "Analysis failed"
	case errors.Is(err, domain.ErrInvalidClient),
		errors.Is(err, domain.ErrNoFiles),
		errors.Is(err, domain.ErrUnknownFormat),
		errors.Is(err, domain.ErrUnsupportedCreative),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrEmptyReport):
		status, title = http.StatusBadRequest, "Invalid request"
	case errors.As(err, &maxBytes):
		status, title = http.StatusRequestEntityTooLarge, "Upload too large"
	}

	log := h.logger.WithContext(c.Request.Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}

	c.JSON(status, gin.H{
		"error":      title,
		"message":    err.Error(),
		"request_id": c.GetString("request_id"),
	})
}
