package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupLookupHandlers registers the postcode and room taxonomy lookups
func (h *Handlers) SetupLookupHandlers(router *gin.RouterGroup) {
	router.GET("/postcodes/:code", h.LookupPostcode)
	router.GET("/rooms/types", h.RoomTypes)
	router.GET("/rooms/colors", h.RoomColors)
}

func (h *Handlers) LookupPostcode(c *gin.Context) {
	loc, err := h.Geocoder.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

func (h *Handlers) RoomTypes(c *gin.Context) {
	if h.Taxonomy == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, h.Taxonomy.Categories)
}

func (h *Handlers) RoomColors(c *gin.Context) {
	if h.Taxonomy == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.Taxonomy.Colors)
}
