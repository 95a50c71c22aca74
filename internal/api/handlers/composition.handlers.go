package routes

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"mapworkbench/internal/geo"
	"mapworkbench/internal/model"

	"github.com/gin-gonic/gin"
)

// SetupCompositionHandlers registers the saved composition endpoints
func (h *Handlers) SetupCompositionHandlers(router *gin.RouterGroup) {
	group := router.Group("/compositions")
	group.GET("", h.ListCompositions)
	group.POST("", h.SaveComposition)
	group.GET("/:id", h.GetComposition)
	group.PUT("/:id", h.UpdateComposition)
	group.DELETE("/:id", h.DeleteComposition)
	group.PUT("/:id/polygons", h.SaveCompositionPolygons)
	group.GET("/:id/export", h.ExportComposition)

	router.GET("/active", h.GetActive)
	router.PUT("/active", h.SetActive)
}

// parseBBox reads "west,south,east,north"
func parseBBox(s string) (geo.Bounds, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Bounds{}, false
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Bounds{}, false
		}
		v[i] = f
	}
	return geo.NewBounds(v[1], v[0], v[3], v[2]), true
}

func (h *Handlers) ListCompositions(c *gin.Context) {
	if bbox := c.Query("bbox"); bbox != "" {
		b, ok := parseBBox(bbox)
		if !ok {
			badRequest(c, "bbox must be west,south,east,north")
			return
		}
		c.JSON(http.StatusOK, h.Compositions.InBounds(b))
		return
	}
	c.JSON(http.StatusOK, h.Compositions.List())
}

func (h *Handlers) SaveComposition(c *gin.Context) {
	var req model.Composition
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	saved, err := h.Compositions.Save(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handlers) GetComposition(c *gin.Context) {
	comp, err := h.Compositions.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (h *Handlers) UpdateComposition(c *gin.Context) {
	var req model.Composition
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.Compositions.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handlers) DeleteComposition(c *gin.Context) {
	if err := h.Compositions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type polygonsRequest struct {
	Polygons []model.PolygonRecord `json:"polygons"`
}

func (h *Handlers) SaveCompositionPolygons(c *gin.Context) {
	var req polygonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.Compositions.SavePolygons(c.Request.Context(), c.Param("id"), req.Polygons)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ExportComposition downloads the polygons as a GeoJSON attachment
func (h *Handlers) ExportComposition(c *gin.Context) {
	fc, filename, err := h.Compositions.Export(c.Param("id"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/geo+json", data)
}

func (h *Handlers) GetActive(c *gin.Context) {
	comp, ok := h.Compositions.Active()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"activeImageId": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activeImageId": comp.ID, "composition": comp})
}

type activeRequest struct {
	ID string `json:"id"`
}

// SetActive selects the active composition; an empty id clears it
func (h *Handlers) SetActive(c *gin.Context) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.Compositions.SetActive(c.Request.Context(), req.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activeImageId": req.ID})
}
