package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tour360/editor/internal/media"
	"github.com/tour360/editor/internal/storage"
	"github.com/tour360/editor/pkg/core"
)

var errNoMedia = errors.New("media store not configured")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		parseErr *core.ParseError
		navErr   *core.NavigationError
	)
	switch {
	case errors.As(err, &parseErr), errors.Is(err, media.ErrInvalidName):
		return http.StatusBadRequest
	case errors.As(err, &navErr),
		errors.Is(err, core.ErrDanglingSceneReference),
		errors.Is(err, storage.ErrSlotEmpty),
		errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoMedia):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Server) failErr(c *gin.Context, err error) {
	s.fail(c, statusFor(err), err)
}

func sceneNotFound(id string) error {
	return &core.NavigationError{SceneID: id, Err: core.ErrDanglingSceneReference}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.deps.Store.Version()})
}

func (s *Server) getTour(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Store.Snapshot())
}

type renameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) renameTour(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	s.deps.Store.SetName(strings.TrimSpace(req.Name))
	c.JSON(http.StatusOK, s.deps.Store.Snapshot())
}

func (s *Server) exportTour(c *gin.Context) {
	doc, err := s.deps.Store.Serialize()
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="tour.json"`)
	c.Data(http.StatusOK, "application/json", []byte(doc))
}

func (s *Server) importTour(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	t, err := s.deps.Store.Deserialize(string(body))
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) saveTour(c *gin.Context) {
	if err := storage.SaveTour(s.deps.Storage, s.deps.Slot, s.deps.Store); err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": s.deps.Slot, "version": s.deps.Store.Version()})
}

func (s *Server) loadTour(c *gin.Context) {
	t, err := storage.LoadTour(s.deps.Storage, s.deps.Slot, s.deps.Store)
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type sceneRequest struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

func (s *Server) addScene(c *gin.Context) {
	var req sceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Image == "" {
		s.fail(c, http.StatusBadRequest, errors.New("image is required"))
		return
	}

	ref := req.Image
	if s.deps.Media != nil {
		prepared, err := s.deps.Media.Prepare(c.Request.Context(), req.Image)
		if err != nil && strings.HasPrefix(req.Image, "data:") {
			s.fail(c, http.StatusBadRequest, fmt.Errorf("invalid image: %w", err))
			return
		}
		ref = prepared
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("Scene %d", len(s.deps.Store.Snapshot().Scenes)+1)
	}
	c.JSON(http.StatusCreated, s.deps.Store.AddScene(title, ref))
}

type sceneUpdate struct {
	Title    *string `json:"title"`
	ImageURL *string `json:"imageUrl"`
}

func (s *Server) updateScene(c *gin.Context) {
	id := c.Param("id")
	sc, ok := s.deps.Store.Snapshot().Scene(id)
	if !ok {
		s.failErr(c, sceneNotFound(id))
		return
	}
	var req sceneUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	sc = sc.Clone()
	if req.Title != nil {
		sc.Title = *req.Title
	}
	if req.ImageURL != nil {
		sc.ImageURL = *req.ImageURL
	}
	s.deps.Store.UpdateScene(sc)
	c.JSON(http.StatusOK, sc)
}

func (s *Server) removeScene(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.deps.Store.Snapshot().Scene(id); !ok {
		s.failErr(c, sceneNotFound(id))
		return
	}
	s.deps.Store.RemoveScene(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) setCurrentScene(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.deps.Store.Snapshot().Scene(id); !ok {
		s.failErr(c, sceneNotFound(id))
		return
	}
	s.deps.Store.SetCurrentScene(id)
	c.JSON(http.StatusOK, s.deps.Store.Snapshot())
}

func (s *Server) addHotSpot(c *gin.Context) {
	id := c.Param("id")
	var draft core.HotSpotDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if !draft.Type.Valid() {
		s.fail(c, http.StatusBadRequest, fmt.Errorf("unknown hotspot type %q", draft.Type))
		return
	}
	if draft.Type == core.HotSpotScene && draft.SceneID == "" {
		s.fail(c, http.StatusBadRequest, errors.New("scene hotspot needs a sceneId"))
		return
	}
	hs, ok := s.deps.Store.AddHotSpot(id, draft)
	if !ok {
		s.failErr(c, sceneNotFound(id))
		return
	}
	c.JSON(http.StatusCreated, hs)
}

func (s *Server) removeHotSpot(c *gin.Context) {
	id, hid := c.Param("id"), c.Param("hid")
	sc, ok := s.deps.Store.Snapshot().Scene(id)
	if !ok {
		s.failErr(c, sceneNotFound(id))
		return
	}
	if _, ok := sc.HotSpot(hid); !ok {
		s.fail(c, http.StatusNotFound, fmt.Errorf("hotspot %q not found in scene %q", hid, id))
		return
	}
	s.deps.Store.RemoveHotSpot(id, hid)
	c.Status(http.StatusNoContent)
}

func (s *Server) getVisited(c *gin.Context) {
	visited, err := storage.HasVisited(s.deps.Storage)
	if err != nil {
		s.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visited": visited})
}

func (s *Server) markVisited(c *gin.Context) {
	if err := storage.MarkVisited(s.deps.Storage); err != nil {
		s.failErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getMedia(c *gin.Context) {
	if s.deps.Media == nil {
		s.failErr(c, errNoMedia)
		return
	}
	obj, err := s.deps.Media.Store().Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.failErr(c, err)
		return
	}
	defer obj.Close()
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
