package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/usecase"
)

const (
	batchListLimit     = 20
	defaultHistoryDays = 7
	maxHistoryDays     = 30
)

// SummaryStore reads consolidated summaries and briefings.
type SummaryStore interface {
	TopicSummariesByBatch(ctx context.Context, batchID string) ([]domain.TopicSummary, error)
	LatestBatchID(ctx context.Context) (string, error)
	ListBatches(ctx context.Context, limit int) ([]domain.BatchInfo, error)
	LatestBriefing(ctx context.Context) (domain.Briefing, error)
	BriefingsSince(ctx context.Context, date string) ([]domain.Briefing, error)
}

// TopicManager is the tracked topic CRUD surface.
type TopicManager interface {
	List(ctx context.Context) ([]domain.TrackedTopic, error)
	Create(ctx context.Context, label string, region domain.Region) (domain.TrackedTopic, error)
	Update(ctx context.Context, id int64, patch usecase.TopicPatch) (domain.TrackedTopic, error)
	Delete(ctx context.Context, id int64) error
}

type Refresher interface {
	Refresh(ctx context.Context) domain.RefreshResult
}

type MarketReader interface {
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

// Deps lists what the handlers need. Nil readers answer 503.
type Deps struct {
	Store    SummaryStore
	Topics   TopicManager
	Refresh  Refresher
	Market   MarketReader
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
}

type Handler struct {
	store    SummaryStore
	topics   TopicManager
	refresh  Refresher
	market   MarketReader
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

func NewHandler(deps Deps) *Handler {
	h := &Handler{
		store:    deps.Store,
		topics:   deps.Topics,
		refresh:  deps.Refresh,
		market:   deps.Market,
		logger:   deps.Logger,
		location: deps.Location,
		now:      deps.Now,
	}
	if h.logger == nil {
		h.logger = logging.Discard()
	}
	if h.location == nil {
		h.location = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PostRefresh runs collection and consolidation synchronously.
func (h *Handler) PostRefresh(c *gin.Context) {
	if h.refresh == nil {
		unavailable(c)
		return
	}
	c.JSON(http.StatusOK, h.refresh.Refresh(c.Request.Context()))
}

// GetTopicSummaries returns the requested batch, or the latest one.
func (h *Handler) GetTopicSummaries(c *gin.Context) {
	if h.store == nil {
		unavailable(c)
		return
	}
	ctx := c.Request.Context()

	batchID := c.Query("batch_id")
	if batchID == "" {
		latest, err := h.store.LatestBatchID(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusOK, SummaryListResponse{Items: []SummaryResponse{}, BatchID: ""})
			return
		}
		if err != nil {
			h.dbError(c, "error fetching latest batch", err)
			return
		}
		batchID = latest
	}

	summaries, err := h.store.TopicSummariesByBatch(ctx, batchID)
	if err != nil {
		h.dbError(c, "error fetching summaries", err, "batch_id", batchID)
		return
	}

	res := SummaryListResponse{Items: make([]SummaryResponse, 0, len(summaries)), BatchID: batchID}
	for _, s := range summaries {
		res.Items = append(res.Items, toSummaryResponse(s))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetBatches(c *gin.Context) {
	if h.store == nil {
		unavailable(c)
		return
	}
	batches, err := h.store.ListBatches(c.Request.Context(), batchListLimit)
	if err != nil {
		h.dbError(c, "error fetching batches", err)
		return
	}

	res := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		res = append(res, BatchResponse(b))
	}
	c.JSON(http.StatusOK, res)
}

// GetLatestBriefing answers null when nothing was generated yet.
func (h *Handler) GetLatestBriefing(c *gin.Context) {
	if h.store == nil {
		unavailable(c)
		return
	}
	briefing, err := h.store.LatestBriefing(c.Request.Context())
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusOK, nil)
		return
	}
	if err != nil {
		h.dbError(c, "error fetching latest briefing", err)
		return
	}
	c.JSON(http.StatusOK, toBriefingResponse(briefing))
}

func (h *Handler) GetBriefingHistory(c *gin.Context) {
	if h.store == nil {
		unavailable(c)
		return
	}

	days := defaultHistoryDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 30"})
			return
		}
		days = n
	}

	since := h.now().In(h.location).AddDate(0, 0, -days).Format(domain.DateLayout)
	briefings, err := h.store.BriefingsSince(c.Request.Context(), since)
	if err != nil {
		h.dbError(c, "error fetching briefing history", err, "since", since)
		return
	}

	res := make([]BriefingResponse, 0, len(briefings))
	for _, b := range briefings {
		res = append(res, toBriefingResponse(b))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetMarketData(c *gin.Context) {
	if h.market == nil {
		unavailable(c)
		return
	}
	c.JSON(http.StatusOK, h.market.Snapshot(c.Request.Context()))
}

func (h *Handler) ListTopics(c *gin.Context) {
	if h.topics == nil {
		unavailable(c)
		return
	}
	topics, err := h.topics.List(c.Request.Context())
	if err != nil {
		h.dbError(c, "error fetching topics", err)
		return
	}

	res := make([]TopicResponse, 0, len(topics))
	for _, t := range topics {
		res = append(res, toTopicResponse(t))
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateTopic(c *gin.Context) {
	if h.topics == nil {
		unavailable(c)
		return
	}

	var req CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	region, err := domain.ParseRegion(req.Region)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topic, err := h.topics.Create(c.Request.Context(), req.Topic, region)
	if errors.Is(err, usecase.ErrInvalidTopic) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.dbError(c, "error creating topic", err)
		return
	}
	c.JSON(http.StatusCreated, toTopicResponse(topic))
}

func (h *Handler) UpdateTopic(c *gin.Context) {
	if h.topics == nil {
		unavailable(c)
		return
	}
	id, ok := topicID(c)
	if !ok {
		return
	}

	var req UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	patch := usecase.TopicPatch{Label: req.Topic, Active: req.IsActive}
	if req.Region != nil {
		region, err := domain.ParseRegion(*req.Region)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.Region = &region
	}

	topic, err := h.topics.Update(c.Request.Context(), id, patch)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Keyword not found"})
	case errors.Is(err, usecase.ErrInvalidTopic):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		h.dbError(c, "error updating topic", err, "topic_id", id)
	default:
		c.JSON(http.StatusOK, toTopicResponse(topic))
	}
}

func (h *Handler) DeleteTopic(c *gin.Context) {
	if h.topics == nil {
		unavailable(c)
		return
	}
	id, ok := topicID(c)
	if !ok {
		return
	}

	err := h.topics.Delete(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Keyword not found"})
		return
	}
	if err != nil {
		h.dbError(c, "error deleting topic", err, "topic_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}

func topicID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid keyword id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) dbError(c *gin.Context, msg string, err error, attrs ...any) {
	h.logger.ErrorContext(c.Request.Context(), msg, append(attrs, "error", err)...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service not configured"})
}
