package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ticket-tagger/backend/internal/db"
	"github.com/ticket-tagger/backend/internal/models"
	"github.com/ticket-tagger/backend/internal/service"
	"github.com/ticket-tagger/backend/internal/tagging"
	"github.com/ticket-tagger/backend/internal/ticketfile"
)

// RunStore is the part of db.Store the handlers read from. Nil when no
// database is configured.
type RunStore interface {
	Ping(ctx context.Context) error
	GetLatestRun(ctx context.Context) (models.Run, error)
}

type Handler struct {
	Tagger         *service.TaggingService
	Store          RunStore
	Validator      *validator.Validate
	Logger         zerolog.Logger
	RequestTimeout time.Duration
	InputPath      string
	OutputPath     string
}

type ClassifyRequest struct {
	Message string `json:"message" validate:"required"`
}

type ClassifyResponse struct {
	Outcome tagging.Outcome   `json:"outcome"`
	Tags    []models.Category `json:"tags"`
	Raw     string            `json:"raw,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

type RunRequest struct {
	InputPath  string `json:"input_path" validate:"omitempty,max=4096"`
	OutputPath string `json:"output_path" validate:"omitempty,max=4096"`
}

func (h *Handler) Healthz(c *gin.Context) {
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List categories
// @Tags tagging
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/categories [get]
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.categories()})
}

// @Summary Classify one message
// @Tags tagging
// @Accept json
// @Produce json
// @Param request body ClassifyRequest true "message to classify"
// @Success 200 {object} ClassifyResponse
// @Router /api/classify [post]
func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	res, err := h.Tagger.ClassifyMessage(ctx, req.Message)
	if err != nil {
		h.Logger.Error().Err(err).Msg("classification failed")
		writeError(c, http.StatusBadGateway, "CLASSIFIER_ERROR", "Classifier request failed", err.Error())
		return
	}
	if res.Outcome == tagging.Malformed {
		h.Logger.Warn().Str("raw", res.Raw).Str("reason", res.Reason).Msg("unexpected model response")
	}
	c.JSON(http.StatusOK, ClassifyResponse{
		Outcome: res.Outcome,
		Tags:    res.TagsOrEmpty(),
		Raw:     res.Raw,
		Reason:  res.Reason,
	})
}

// @Summary Run a tagging batch
// @Tags runs
// @Accept json
// @Produce json
// @Param request body RunRequest false "path overrides inside the configured directories"
// @Success 200 {object} service.RunSummary
// @Router /api/runs [post]
func (h *Handler) CreateRun(c *gin.Context) {
	var req RunRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
			return
		}
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	input, err := confine(h.InputPath, req.InputPath)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PATH", "Invalid input_path", err.Error())
		return
	}
	output, err := confine(h.OutputPath, req.OutputPath)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PATH", "Invalid output_path", err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	summary, err := h.Tagger.Run(ctx, input, output)
	if err != nil {
		var storeErr *ticketfile.StoreReadError
		var failure *service.ClassifierFailure
		switch {
		case errors.As(err, &storeErr):
			writeError(c, http.StatusBadRequest, "STORE_READ_ERROR", "Failed to read tickets", err.Error())
		case errors.As(err, &failure):
			writeError(c, http.StatusBadGateway, "CLASSIFIER_ERROR", "Classifier request failed", summary)
		default:
			writeError(c, http.StatusInternalServerError, "WRITE_ERROR", "Failed to write results", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Latest run
// @Tags runs
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	if h.Store == nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Run history is disabled", nil)
		return
	}
	run, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		if db.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) categories() []models.Category {
	if h.Tagger != nil && len(h.Tagger.Categories) > 0 {
		return h.Tagger.Categories
	}
	return models.Categories
}

// confine resolves an override against the directory of the configured
// path and rejects anything that lands outside it. Relative overrides are
// taken relative to that directory.
func confine(configured, override string) (string, error) {
	if override == "" {
		return configured, nil
	}
	root, err := filepath.Abs(filepath.Dir(configured))
	if err != nil {
		return "", err
	}
	target := override
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", override, root)
	}
	return target, nil
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
