package sources

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"repackhub/internal/notify"
)

type Handler struct {
	Service *Service
	Repo    *Repo
	Hub     *notify.Hub
}

func NewHandler(service *Service, repo *Repo, hub *notify.Hub) *Handler {
	return &Handler{Service: service, Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.importSource)        // POST /sources
	rg.GET("", h.list)                 // GET /sources
	rg.GET("/:id", h.getByID)          // GET /sources/:id
	rg.GET("/:id/repacks", h.repacks)  // GET /sources/:id/repacks
	rg.POST("/:id/refresh", h.refresh) // POST /sources/:id/refresh
	rg.DELETE("/:id", h.remove)        // DELETE /sources/:id
}

type importRequest struct {
	URL             string `json:"url" binding:"required,url"`
	FailOnDuplicate bool   `json:"fail_on_duplicate"`
}

func (h *Handler) importSource(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	source, err := h.Service.ImportSource(c.Request.Context(), req.URL, req.FailOnDuplicate)
	if err != nil {
		switch {
		case errors.Is(err, ErrSourceExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, ErrManifestInvalid):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			log.Printf("[sources] import %s failed: %v", req.URL, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "import failed"})
		}
		return
	}

	if source == nil {
		// already registered; silently skipped
		c.JSON(http.StatusOK, gin.H{"skipped": true})
		return
	}

	h.Hub.BroadcastJSON(notify.SourceEvent{
		Type:          notify.SourceImportedEventType,
		SourceID:      source.ID,
		Name:          source.Name,
		DownloadCount: source.DownloadCount,
		MatchedCount:  len(source.ObjectIDs),
		At:            time.Now(),
	})

	c.JSON(http.StatusCreated, source)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Repo.ListSources()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(list),
		"items": list,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	source, err := h.Repo.GetSource(id)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, source)
}

func (h *Handler) repacks(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.Repo.GetSource(id); err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}

	list, err := h.Repo.ListRepacksForSource(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total": len(list),
		"items": list,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	existing, err := h.Repo.GetSource(id)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}

	updated, err := h.Service.RefreshSource(c.Request.Context(), existing, existing.URL)
	if err != nil {
		if errors.Is(err, ErrManifestInvalid) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[sources] refresh %d failed: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "refresh failed"})
		return
	}

	h.Hub.BroadcastJSON(notify.SourceEvent{
		Type:          notify.SourceRefreshedEventType,
		SourceID:      updated.ID,
		Name:          updated.Name,
		DownloadCount: updated.DownloadCount,
		At:            time.Now(),
	})

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	source, err := h.Repo.GetSource(id)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}

	if err := h.Service.RemoveSource(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}

	h.Hub.BroadcastJSON(notify.SourceEvent{
		Type:     notify.SourceRemovedEventType,
		SourceID: id,
		Name:     source.Name,
		At:       time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
