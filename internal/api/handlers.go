package api

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/karmadocs/internal/config"
	"github.com/bilgisen/karmadocs/internal/engine"
	"github.com/bilgisen/karmadocs/internal/importer"
	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/bilgisen/karmadocs/internal/middleware"
	"github.com/bilgisen/karmadocs/internal/models"
	"github.com/bilgisen/karmadocs/internal/store"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	config    *config.Config
	engine    *engine.Engine
	importer  *importer.Importer
	validator *middleware.Validator
}

func NewHandlers(cfg *config.Config, eng *engine.Engine, imp *importer.Importer) *Handlers {
	return &Handlers{
		config:    cfg,
		engine:    eng,
		importer:  imp,
		validator: middleware.NewValidator(),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// ListArticles handles GET /api/v1/articles. Without ?sync=true it serves
// the local cache and never fails on an unreachable remote; with it, the
// cache is rebuilt from the remote store first.
func (h *Handlers) ListArticles(c *fiber.Ctx) error {
	if c.Query("sync") == "true" {
		articles, err := h.engine.Resync(c.Context())
		if err != nil {
			logger.Get().Error().Err(err).Msg("Resync failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "remote unreachable: " + err.Error(),
			})
		}
		return c.JSON(articles)
	}

	articles, err := h.engine.List(c.Context())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error loading article cache")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load articles",
		})
	}
	return c.JSON(articles)
}

type createRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

// CreateArticle handles POST /api/v1/articles
func (h *Handlers) CreateArticle(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}

	article, err := h.engine.CreateDraft(c.Context(), req.Title, req.Category)
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error creating draft")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create draft",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

type saveLocalRequest struct {
	ID           models.ArticleID `json:"id"`
	Content      string           `json:"content"`
	Title        string           `json:"title" validate:"required"`
	Category     string           `json:"category"`
	LastModified string           `json:"lastModified"`
}

// SaveLocal handles POST /api/v1/articles/save-local
func (h *Handlers) SaveLocal(c *fiber.Ctx) error {
	var req saveLocalRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if req.ID.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Article id is required",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": middleware.FieldErrors(err),
		})
	}

	err := h.engine.SaveLocal(c.Context(), req.ID, req.Content, req.Title, req.Category, req.LastModified)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "ID " + req.ID.String() + " not found in cache",
			})
		}
		logger.Get().Error().Err(err).Str("id", req.ID.String()).Msg("Error saving draft")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

type pushLiveRequest struct {
	ID       models.ArticleID `json:"id"`
	Title    string           `json:"title" validate:"required"`
	Content  string           `json:"content"`
	Slug     string           `json:"slug"`
	Category string           `json:"category"`
}

// PushLive handles POST /api/v1/articles/push-live
func (h *Handlers) PushLive(c *fiber.Ctx) error {
	var req pushLiveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if req.ID.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Article id is required",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": middleware.FieldErrors(err),
		})
	}

	result, err := h.engine.PushLive(c.Context(), req.ID, req.Title, req.Content, req.Slug, req.Category)
	if err != nil {
		logger.Get().Error().Err(err).Str("id", req.ID.String()).Msg("Push live failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"canonicalId":  result.CanonicalID,
		"lastSyncedAt": result.LastSyncedAt,
		"cacheUpdated": result.CacheUpdated,
	})
}

type pushSelectedRequest struct {
	IDs []models.ArticleID `json:"ids" validate:"required,min=1"`
}

type pushItemResult struct {
	ID          models.ArticleID `json:"id"`
	CanonicalID string           `json:"canonicalId,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// PushSelected handles POST /api/v1/articles/push-selected. The batch
// always completes; failures come back itemized per id.
func (h *Handlers) PushSelected(c *fiber.Ctx) error {
	var req pushSelectedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if len(req.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No article ids provided",
		})
	}

	results := h.engine.PushSelected(c.Context(), req.IDs)

	out := make([]pushItemResult, 0, len(results))
	failed := 0
	for _, r := range results {
		item := pushItemResult{ID: r.ID, CanonicalID: r.CanonicalID}
		if r.Err != nil {
			item.Error = r.Err.Error()
			failed++
		}
		out = append(out, item)
	}
	return c.JSON(fiber.Map{
		"results": out,
		"total":   len(out),
		"failed":  failed,
	})
}

type deleteRequest struct {
	ID models.ArticleID `json:"id"`
}

// DeleteArticle handles POST /api/v1/articles/delete
func (h *Handlers) DeleteArticle(c *fiber.Ctx) error {
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}
	if req.ID.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Article id is required",
		})
	}

	if err := h.engine.Delete(c.Context(), req.ID); err != nil {
		logger.Get().Error().Err(err).Str("id", req.ID.String()).Msg("Delete failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// RunImport handles POST /api/v1/admin/import. The import runs in the
// background; it replaces the cache only when every page converts.
func (h *Handlers) RunImport(c *fiber.Ctx) error {
	log := logger.Get()
	log.Info().
		Str("ip", c.IP()).
		Msg("Received import request")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.config.ImportTimeout)
		defer cancel()

		count, err := h.importer.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Background import failed")
			return
		}
		log.Info().Int("articles", count).Msg("Background import finished")
	}()

	return c.JSON(fiber.Map{
		"status":  "started",
		"message": "Importing articles in the background",
	})
}
