package http

import (
	"net/http"
	"strconv"

	"watchparty/internal/core/domain"
	"watchparty/internal/core/ports"
	"watchparty/internal/infrastructure/catalog"
	apperrors "watchparty/pkg/errors"
	"watchparty/pkg/validation"

	"github.com/gin-gonic/gin"
)

// PartyHandler exposes the local session to the browser UI.
type PartyHandler struct {
	party   ports.PartyService
	catalog ports.CatalogService
}

// NewPartyHandler creates the handler. catalog may be nil when no API key is configured.
func NewPartyHandler(party ports.PartyService, catalog ports.CatalogService) *PartyHandler {
	return &PartyHandler{
		party:   party,
		catalog: catalog,
	}
}

func (h *PartyHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/v1")
	{
		api.POST("/profile", h.SetProfile)
		api.POST("/party", h.CreateParty)
		api.POST("/party/join", h.JoinParty)
		api.POST("/party/leave", h.LeaveParty)
		api.GET("/party", h.GetParty)

		api.POST("/videos", h.PlayVideo)
		api.POST("/queue", h.AddToQueue)
		api.POST("/queue/:index/play", h.PlayFromQueue)
		api.DELETE("/queue/:index", h.RemoveFromQueue)
		api.POST("/queue/shuffle", h.ShuffleQueue)
		api.POST("/queue/visibility", h.ToggleQueueVisibility)
		api.POST("/queue/random", h.ToggleRandomPlay)
		api.POST("/replay", h.Replay)

		api.GET("/search", h.Search)
		api.POST("/playlists/:id", h.LoadPlaylist)
		api.GET("/suggestions", h.Suggestions)
	}
}

func (h *PartyHandler) SetProfile(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	if err := validation.ValidateDisplayName(req.Name); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	if err := h.party.SetName(c.Request.Context(), req.Name); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PartyHandler) CreateParty(c *gin.Context) {
	partyID, err := h.party.CreateParty(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondStatus(c, http.StatusCreated, gin.H{"partyId": partyID})
}

func (h *PartyHandler) JoinParty(c *gin.Context) {
	var req struct {
		PartyID domain.PartyID `json:"partyId" binding:"required"`
		Invite  string         `json:"invite"`
	}
	if !bind(c, &req) {
		return
	}
	if err := validation.ValidatePartyID(string(req.PartyID)); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	if err := h.party.JoinParty(c.Request.Context(), req.PartyID, req.Invite); err != nil {
		_ = c.Error(err)
		return
	}
	h.respondStatus(c, http.StatusOK, gin.H{"partyId": req.PartyID})
}

func (h *PartyHandler) LeaveParty(c *gin.Context) {
	if err := h.party.Leave(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PartyHandler) GetParty(c *gin.Context) {
	status, err := h.party.Status(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PartyHandler) PlayVideo(c *gin.Context) {
	var req struct {
		VideoID string `json:"videoId" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	h.accepted(c, h.party.PlayVideo(c.Request.Context(), req.VideoID))
}

func (h *PartyHandler) AddToQueue(c *gin.Context) {
	var req struct {
		VideoID      string `json:"videoId" binding:"required"`
		Title        string `json:"title"`
		ThumbnailURL string `json:"thumbnailUrl"`
	}
	if !bind(c, &req) {
		return
	}
	videoID := req.VideoID
	if id, ok := validation.ExtractVideoID(videoID); ok {
		videoID = id
	}
	entry := domain.QueueEntry{VideoID: videoID, Title: req.Title, ThumbnailURL: req.ThumbnailURL}
	h.accepted(c, h.party.AddToQueue(c.Request.Context(), entry))
}

func (h *PartyHandler) PlayFromQueue(c *gin.Context) {
	index, ok := queueIndex(c)
	if !ok {
		return
	}
	h.accepted(c, h.party.PlayFromQueue(c.Request.Context(), index))
}

func (h *PartyHandler) RemoveFromQueue(c *gin.Context) {
	index, ok := queueIndex(c)
	if !ok {
		return
	}
	h.accepted(c, h.party.RemoveFromQueue(c.Request.Context(), index))
}

func (h *PartyHandler) ShuffleQueue(c *gin.Context) {
	h.accepted(c, h.party.ShuffleQueue(c.Request.Context()))
}

func (h *PartyHandler) ToggleQueueVisibility(c *gin.Context) {
	h.accepted(c, h.party.ToggleQueueVisibility(c.Request.Context()))
}

func (h *PartyHandler) ToggleRandomPlay(c *gin.Context) {
	h.accepted(c, h.party.ToggleRandomPlay(c.Request.Context()))
}

func (h *PartyHandler) Replay(c *gin.Context) {
	h.accepted(c, h.party.Replay(c.Request.Context()))
}

func (h *PartyHandler) Search(c *gin.Context) {
	if h.catalog == nil {
		_ = c.Error(catalog.ErrCatalogDisabled)
		return
	}
	items, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *PartyHandler) LoadPlaylist(c *gin.Context) {
	if h.catalog == nil {
		_ = c.Error(catalog.ErrCatalogDisabled)
		return
	}
	var req struct {
		PlayFirst bool `json:"playFirst"`
	}
	// an empty body queues every video
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	count, err := h.party.LoadPlaylist(c.Request.Context(), c.Param("id"), req.PlayFirst)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": count})
}

func (h *PartyHandler) Suggestions(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusOK, gin.H{"items": []domain.CatalogItem{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.catalog.Suggestions(c.Query("exclude"))})
}

func (h *PartyHandler) respondStatus(c *gin.Context, code int, body gin.H) {
	status, err := h.party.Status(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	body["status"] = status
	c.JSON(code, body)
}

func (h *PartyHandler) accepted(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusAccepted)
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return false
	}
	return true
}

func queueIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		_ = c.Error(apperrors.NewInvalidInputError("queue index must be a non-negative integer"))
		return 0, false
	}
	return index, true
}
