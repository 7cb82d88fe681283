package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/backup"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/customers"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/failures"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultHeartbeatInterval = 25 * time.Second

var (
	errMissingLinksService    = errors.New("links service dependency required")
	errMissingCustomerService = errors.New("customer service dependency required")
	errMissingBackupService   = errors.New("backup service dependency required")
)

// StorageProbe is used by the health endpoint.
type StorageProbe interface {
	Connect(ctx context.Context) (*gorm.DB, error)
}

type Dependencies struct {
	LinksService      *links.Service
	CustomerService   *customers.Service
	BackupService     *backup.Service
	Storage           StorageProbe
	ChangeFeed        *ChangeFeed
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.LinksService == nil {
		return nil, errMissingLinksService
	}
	if deps.CustomerService == nil {
		return nil, errMissingCustomerService
	}
	if deps.BackupService == nil {
		return nil, errMissingBackupService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	feed := deps.ChangeFeed
	if feed == nil {
		feed = NewChangeFeed()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(logger))
	router.Use(corsMiddleware())

	handler := &httpHandler{
		links:     deps.LinksService,
		customers: deps.CustomerService,
		backups:   deps.BackupService,
		storage:   deps.Storage,
		feed:      feed,
		heartbeat: heartbeat,
		logger:    logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.GET("/customer_info", handler.handleGetCustomer)
	api.POST("/customer_info", handler.handleSetCustomer)
	api.GET("/links", handler.handleListLinks)
	api.POST("/links", handler.handleCreateLink)
	api.GET("/links/facets", handler.handleFacets)
	api.PUT("/links/:id", handler.handleUpdateLink)
	api.DELETE("/links/:id", handler.handleDeleteLink)
	api.GET("/backup", handler.handleBackup)
	api.POST("/restore", handler.handleRestore)
	api.GET("/events", handler.handleEvents)

	return router, nil
}

type httpHandler struct {
	links     *links.Service
	customers *customers.Service
	backups   *backup.Service
	storage   StorageProbe
	feed      *ChangeFeed
	heartbeat time.Duration
	logger    *zap.Logger
}

type customerPayload struct {
	CustomerName *string `json:"customer_name"`
	MoveInDate   *string `json:"move_in_date"`
}

func (h *httpHandler) handleGetCustomer(c *gin.Context) {
	profile, err := h.customers.Get(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *httpHandler) handleSetCustomer(c *gin.Context) {
	var request customerPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	err := h.customers.Set(c.Request.Context(), customers.SetRequest{
		CustomerName: request.CustomerName,
		MoveInDate:   request.MoveInDate,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.feed.Publish(ChangeEvent{Type: ChangeEventCustomer})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleListLinks(c *gin.Context) {
	filter := links.Filter{
		Platform:  c.Query("platform"),
		AddedBy:   firstQuery(c, "added_by", "user"),
		LikeState: links.ParseLikeState(firstQuery(c, "like_state", "like")),
		DateAdded: c.Query("date"),
	}
	listed, err := h.links.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if listed == nil {
		listed = []links.NumberedLink{}
	}
	c.JSON(http.StatusOK, listed)
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if value, ok := c.GetQuery(key); ok {
			return value
		}
	}
	return ""
}

type createLinkPayload struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	AddedBy  string `json:"added_by"`
	Memo     string `json:"memo"`
}

func (h *httpHandler) handleCreateLink(c *gin.Context) {
	var request createLinkPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	id, err := h.links.Create(c.Request.Context(), links.CreateRequest{
		URL:      request.URL,
		Platform: request.Platform,
		AddedBy:  request.AddedBy,
		Memo:     request.Memo,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.feed.Publish(ChangeEvent{Type: ChangeEventLinks, Action: "create", LinkID: id})
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (h *httpHandler) handleFacets(c *gin.Context) {
	facets, err := h.links.Facets(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, facets)
}

type updateLinkPayload struct {
	Action   string  `json:"action"`
	Rating   *int    `json:"rating"`
	Liked    *bool   `json:"liked"`
	Disliked *bool   `json:"disliked"`
	Memo     *string `json:"memo"`
}

func (h *httpHandler) handleUpdateLink(c *gin.Context) {
	id, ok := h.linkID(c)
	if !ok {
		return
	}
	var request updateLinkPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	err := h.links.Update(c.Request.Context(), id, links.UpdateRequest{
		Action:   links.Action(request.Action),
		Rating:   request.Rating,
		Liked:    request.Liked,
		Disliked: request.Disliked,
		Memo:     request.Memo,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.feed.Publish(ChangeEvent{Type: ChangeEventLinks, Action: request.Action, LinkID: id})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleDeleteLink(c *gin.Context) {
	id, ok := h.linkID(c)
	if !ok {
		return
	}
	if err := h.links.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.feed.Publish(ChangeEvent{Type: ChangeEventLinks, Action: "delete", LinkID: id})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) linkID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_link_id"})
		return 0, false
	}
	return id, true
}

func (h *httpHandler) handleBackup(c *gin.Context) {
	snapshot, err := h.backups.Export(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *httpHandler) handleRestore(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	request, err := backup.DecodeRestoreRequest(raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	result, err := h.backups.Restore(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.feed.Publish(ChangeEvent{Type: ChangeEventLinks, Action: "restore"})
	h.feed.Publish(ChangeEvent{Type: ChangeEventCustomer, Action: "restore"})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": result.Message, "restored": result.Restored})
}

func (h *httpHandler) handleEvents(c *gin.Context) {
	stream, cleanup := h.feed.Subscribe(c.Request.Context())
	defer cleanup()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case event := <-stream:
			c.SSEvent(event.Type, event)
			return true
		case tick := <-ticker.C:
			c.SSEvent(changeEventPing, gin.H{"timestamp": tick.UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	if h.storage != nil {
		if _, err := h.storage.Connect(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) respondInvalidRequest(c *gin.Context, err error) {
	h.logger.Debug("invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_request"})
}

// respondError maps service failures onto the uniform {success:false} body.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if failures.IsValidation(err) {
		status = http.StatusBadRequest
	}
	body := gin.H{"success": false, "error": err.Error()}

	var serviceErr *failures.ServiceError
	if errors.As(err, &serviceErr) {
		body["error"] = serviceErr.Message()
		body["code"] = serviceErr.Code()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
	}
	c.JSON(status, body)
}
