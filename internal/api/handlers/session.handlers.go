package routes

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"mapworkbench/internal/annotation"
	"mapworkbench/internal/editor"
	"mapworkbench/internal/frame"
	"mapworkbench/internal/geo"
	"mapworkbench/internal/handle"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
)

// SetupSessionHandlers registers the editor session endpoints
func (h *Handlers) SetupSessionHandlers(router *gin.RouterGroup) {
	group := router.Group("/sessions")
	group.POST("/image", h.CreateImageSession)
	group.POST("/geojson", h.CreateGeoJSONSession)
	group.POST("/from/:id", h.CreateSessionFromComposition)

	s := group.Group("/:sid")
	s.GET("", h.withSession(h.viewSession))
	s.DELETE("", h.DeleteSession)
	s.POST("/gesture", h.withSession(h.gesture))
	s.POST("/nudge", h.withSession(h.nudge))
	s.PUT("/corners", h.withSession(h.fitCorners))
	s.POST("/rotation/reset", h.withSession(h.resetRotation))
	s.PUT("/opacity", h.withSession(h.setOpacity))
	s.PUT("/floor", h.withSession(h.setFloorLevel))
	s.POST("/postcode", h.withSession(h.centerOnPostcode))
	s.POST("/draw/start", h.withSession(h.startDrawing))
	s.POST("/draw/click", h.withSession(h.clickDrawing))
	s.POST("/draw/finish", h.withSession(h.finishDrawing))
	s.POST("/draw/cancel", h.withSession(h.cancelDrawing))
	s.PUT("/polygons/:pid/name", h.withSession(h.namePolygon))
	s.DELETE("/polygons/:pid", h.withSession(h.deletePolygon))
	s.DELETE("/polygons", h.withSession(h.clearPolygons))
	s.GET("/render", h.withSession(h.render))
	s.POST("/save", h.withSession(h.saveSession))
}

// withSession resolves :sid before calling fn
func (h *Handlers) withSession(fn func(*gin.Context, *editor.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.Sessions.Get(c.Param("sid"))
		if err != nil {
			respondError(c, err)
			return
		}
		fn(c, s)
	}
}

type point struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

func (p point) toPoint() orb.Point { return orb.Point{*p.Lng, *p.Lat} }

type createImageRequest struct {
	URL         string   `json:"url" binding:"required"`
	Name        string   `json:"name"`
	AspectRatio float64  `json:"aspectRatio"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// CreateImageSession places a freshly uploaded image, optionally centred on lat/lng
func (h *Handlers) CreateImageSession(c *gin.Context) {
	var req createImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	s := editor.NewImageSession(req.URL, req.Name, req.AspectRatio, h.Taxonomy)
	if req.Lat != nil && req.Lng != nil {
		if err := s.Recenter(*req.Lat, *req.Lng); err != nil {
			respondError(c, err)
			return
		}
	}
	h.Sessions.Add(s)
	c.JSON(http.StatusCreated, s.View())
}

// CreateGeoJSONSession imports a GeoJSON upload. Local-XY input opens a
// session whose handles place the frame; WGS84 input is returned as-is.
func (h *Handlers) CreateGeoJSONSession(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file")
		return
	}
	kind, err := frame.ParseKind(c.PostForm("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.Uploads.MaxBytes()+1))
	if err != nil {
		respondError(c, fmt.Errorf("read upload: %w", err))
		return
	}
	if err := h.Uploads.CheckSize(int64(len(data))); err != nil {
		respondError(c, err)
		return
	}

	res, err := frame.Import(data, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("[SESSION] Imported %s as %s (detected %s)", fh.Filename, res.Kind, res.Detected)

	if res.Frame == nil {
		c.JSON(http.StatusOK, gin.H{
			"kind":     res.Kind,
			"detected": res.Detected,
			"bounds":   res.Bounds,
			"geojson":  res.Collection,
		})
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = fh.Filename
	}
	s := h.Sessions.Add(editor.NewGeoJSONSession(res.Frame, name, h.Taxonomy))
	c.JSON(http.StatusCreated, gin.H{
		"kind":     res.Kind,
		"detected": res.Detected,
		"session":  s.View(),
	})
}

// CreateSessionFromComposition reopens a saved composition and makes it active
func (h *Handlers) CreateSessionFromComposition(c *gin.Context) {
	comp, err := h.Compositions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Compositions.SetActive(c.Request.Context(), comp.ID); err != nil {
		respondError(c, err)
		return
	}
	s := h.Sessions.Add(editor.NewSessionFromComposition(comp, h.Taxonomy))
	c.JSON(http.StatusCreated, s.View())
}

func (h *Handlers) DeleteSession(c *gin.Context) {
	if err := h.Sessions.Delete(c.Param("sid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) viewSession(c *gin.Context, s *editor.Session) {
	c.JSON(http.StatusOK, s.View())
}

type gestureRequest struct {
	Phase  string `json:"phase" binding:"required,oneof=start drag end"`
	Handle string `json:"handle"`
	point
}

// gesture feeds one pointer event of a handle drag
func (h *Handlers) gesture(c *gin.Context, s *editor.Session) {
	var req gestureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// end carries no position
		if req.Phase != "end" {
			badRequest(c, err.Error())
			return
		}
	}

	var err error
	switch req.Phase {
	case "start":
		var id handle.ID
		if id, err = handle.ParseID(req.Handle); err == nil {
			err = s.DragStart(id, req.toPoint())
		}
	case "drag":
		err = s.Drag(req.toPoint())
	case "end":
		err = s.DragEnd()
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

type nudgeRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func (h *Handlers) nudge(c *gin.Context, s *editor.Session) {
	var req nudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dir, err := geo.ParseDirection(req.Direction)
	if err == nil {
		err = s.Nudge(dir)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

type cornersRequest struct {
	Corners []point `json:"corners" binding:"required,len=4,dive"`
}

// fitCorners places the overlay from its four rotated corners (NW, NE, SE, SW)
func (h *Handlers) fitCorners(c *gin.Context, s *editor.Session) {
	var req cornersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var corners [4]orb.Point
	for i, p := range req.Corners {
		corners[i] = p.toPoint()
	}
	if err := s.FitCorners(corners); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handlers) resetRotation(c *gin.Context, s *editor.Session) {
	if err := s.ResetRotation(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

type opacityRequest struct {
	Opacity *float64 `json:"opacity" binding:"required"`
}

func (h *Handlers) setOpacity(c *gin.Context, s *editor.Session) {
	var req opacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s.SetOpacity(*req.Opacity)
	c.JSON(http.StatusOK, s.View())
}

type floorRequest struct {
	FloorLevel string `json:"floorLevel"`
}

func (h *Handlers) setFloorLevel(c *gin.Context, s *editor.Session) {
	var req floorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	s.SetFloorLevel(req.FloorLevel)
	c.JSON(http.StatusOK, s.View())
}

type postcodeRequest struct {
	Postcode string `json:"postcode"`
}

// centerOnPostcode geocodes a postcode and moves the overlay there
func (h *Handlers) centerOnPostcode(c *gin.Context, s *editor.Session) {
	var req postcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	loc, err := h.Geocoder.Lookup(c.Request.Context(), req.Postcode)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.Recenter(loc.Latitude, loc.Longitude); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": loc, "session": s.View()})
}

func (h *Handlers) startDrawing(c *gin.Context, s *editor.Session) {
	if err := s.StartDrawing(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handlers) clickDrawing(c *gin.Context, s *editor.Session) {
	var req point
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := s.Click(req.toPoint())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handlers) finishDrawing(c *gin.Context, s *editor.Session) {
	p, err := s.FinishDrawing()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) cancelDrawing(c *gin.Context, s *editor.Session) {
	s.CancelDrawing()
	c.JSON(http.StatusOK, s.View())
}

func (h *Handlers) namePolygon(c *gin.Context, s *editor.Session) {
	var req annotation.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := s.NamePolygon(c.Param("pid"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) deletePolygon(c *gin.Context, s *editor.Session) {
	if err := s.DeletePolygon(c.Param("pid")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h *Handlers) clearPolygons(c *gin.Context, s *editor.Session) {
	s.ClearPolygons()
	c.JSON(http.StatusOK, s.View())
}

// render returns the local frame mapped through the current placement
func (h *Handlers) render(c *gin.Context, s *editor.Session) {
	fc, err := s.Render()
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// saveSession writes the session to the saved list and makes it active
func (h *Handlers) saveSession(c *gin.Context, s *editor.Session) {
	snap, err := s.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	saved, err := h.Compositions.Save(c.Request.Context(), snap)
	if err != nil {
		respondError(c, err)
		return
	}
	s.MarkSaved(saved.ID)
	c.JSON(http.StatusOK, saved)
}
