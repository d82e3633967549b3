package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/macrolens/foodrecon/internal/domain"
	"github.com/macrolens/foodrecon/internal/infrastructure/cache"
	"github.com/macrolens/foodrecon/internal/usecase"
)

const (
	// SearchSessionHeader identifies a client whose newer searches supersede older ones
	SearchSessionHeader = "X-Search-Session"

	defaultLogLimit = 50
	maxLogLimit     = 500
)

// StatsProvider reports result cache statistics for the health endpoint
type StatsProvider interface {
	Stats() cache.ResultStats
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog  usecase.FoodCatalog
	logging  *usecase.LoggingService
	sessions *usecase.SearchSessions
	stats    StatsProvider
	log      *zap.Logger
}

// NewHandler creates a new HTTP handler. stats may be nil.
func NewHandler(
	catalog usecase.FoodCatalog,
	logging *usecase.LoggingService,
	sessions *usecase.SearchSessions,
	stats StatsProvider,
) *Handler {
	if sessions == nil {
		sessions = usecase.NewSearchSessions(0)
	}
	return &Handler{
		catalog:  catalog,
		logging:  logging,
		sessions: sessions,
		stats:    stats,
		log:      zap.L().Named("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": "macrolens",
		"version": "1.0.0",
	}
	if h.stats != nil {
		body["cache"] = h.stats.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// SearchFoods handles GET /api/v1/foods/search?q=
func (h *Handler) SearchFoods(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, h.log, domain.ErrInvalidRequest)
		return
	}

	ctx := h.sessions.Begin(c.Request.Context(), c.GetHeader(SearchSessionHeader))
	foods, err := h.catalog.Search(ctx, query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"count": len(foods),
		"foods": foods,
	})
}

// GetFood handles GET /api/v1/foods/:fdcId
func (h *Handler) GetFood(c *gin.Context) {
	id, err := usecase.ParseFdcID(c.Param("fdcId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	food, err := h.catalog.Details(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

// portionRequest carries an amount and everything needed to turn it into grams
type portionRequest struct {
	Quantity        float64                `json:"quantity"`
	Unit            domain.ServingUnit     `json:"unit"`
	GramsPerServing *float64               `json:"gramsPerServing,omitempty"`
	DensityGPerMl   *float64               `json:"densityGPerMl,omitempty"`
	HouseholdUnits  []domain.HouseholdUnit `json:"householdUnits,omitempty"`
}

type snapshotRequest struct {
	portionRequest
	Per100 domain.FoodLoggingNutrients `json:"per100"`
}

// ResolvePortion handles POST /api/v1/portions/resolve
func (h *Handler) ResolvePortion(c *gin.Context) {
	var req portionRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Unit.Valid() {
		respondError(c, h.log, domain.ErrInvalidRequest)
		return
	}

	grams, ok := usecase.ResolveToGrams(req.Quantity, req.Unit, req.GramsPerServing, req.DensityGPerMl, req.HouseholdUnits)
	body := gin.H{"resolved": ok}
	if ok {
		body["grams"] = grams
	}
	c.JSON(http.StatusOK, body)
}

// CalculateSnapshot handles POST /api/v1/snapshots
func (h *Handler) CalculateSnapshot(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Unit.Valid() {
		respondError(c, h.log, domain.ErrInvalidRequest)
		return
	}

	snap := usecase.CalculateSnapshot(req.Per100, req.Quantity, req.Unit, req.GramsPerServing, req.DensityGPerMl, req.HouseholdUnits)
	c.JSON(http.StatusOK, gin.H{"nutrients": snap})
}

// AddReference handles POST /api/v1/references/:fdcId
func (h *Handler) AddReference(c *gin.Context) {
	id, err := usecase.ParseFdcID(c.Param("fdcId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	ref, err := h.logging.AddReference(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ref)
}

// LogFood handles POST /api/v1/logs
func (h *Handler) LogFood(c *gin.Context) {
	var req usecase.LogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, domain.ErrInvalidRequest)
		return
	}

	entry, err := h.logging.LogFood(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListLogs handles GET /api/v1/logs?limit=
func (h *Handler) ListLogs(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, h.log, domain.ErrInvalidRequest)
			return
		}
		limit = min(n, maxLogLimit)
	}

	entries, err := h.logging.RecentEntries(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidHouseholdUnit):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrReferenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrUSDAAPIFailure), errors.Is(err, domain.ErrOpenFoodFactsFailure):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
