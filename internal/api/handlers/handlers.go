package routes

import (
	"context"
	"errors"
	"log"
	"net/http"

	"mapworkbench/internal/annotation"
	"mapworkbench/internal/editor"
	"mapworkbench/internal/frame"
	"mapworkbench/internal/geo"
	"mapworkbench/internal/handle"
	"mapworkbench/internal/model"
	"mapworkbench/internal/service/composition"
	"mapworkbench/internal/service/geocode"
	"mapworkbench/internal/service/session"
	"mapworkbench/internal/service/upload"
	"mapworkbench/internal/taxonomy"

	"github.com/gin-gonic/gin"
)

// Geocoder resolves a postcode to a location
type Geocoder interface {
	Lookup(ctx context.Context, postcode string) (*geocode.Location, error)
}

// Deps are the services the handlers call
type Deps struct {
	Compositions *composition.Service
	Uploads      *upload.Store
	Geocoder     Geocoder
	Sessions     *session.Manager
	Taxonomy     *taxonomy.Taxonomy
}

// Handlers serves the HTTP API over Deps
type Handlers struct {
	Deps
}

func New(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

// errorStatus maps a service error to its HTTP status and user-facing message
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, upload.ErrNoFile):
		return http.StatusBadRequest, "No file"
	case errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "Unsupported type"
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "Too large"
	case errors.Is(err, upload.ErrFilenameRequired):
		return http.StatusBadRequest, "Filename is required"
	case errors.Is(err, upload.ErrBadFilename):
		return http.StatusBadRequest, "Bad filename"
	case errors.Is(err, upload.ErrOutsideUploads):
		return http.StatusForbidden, "Invalid file path"

	case errors.Is(err, geocode.ErrNotFound):
		return http.StatusNotFound, geocode.UserMessage(err)
	case errors.Is(err, geocode.ErrRateLimited):
		return http.StatusTooManyRequests, geocode.UserMessage(err)
	case errors.Is(err, geocode.ErrEmptyPostcode):
		return http.StatusBadRequest, geocode.UserMessage(err)

	case errors.Is(err, composition.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, annotation.ErrPolygonNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, composition.ErrNoPolygons):
		return http.StatusBadRequest, "No polygons to export"

	case errors.Is(err, handle.ErrGestureActive),
		errors.Is(err, handle.ErrNoGesture),
		errors.Is(err, annotation.ErrDrawing),
		errors.Is(err, annotation.ErrNotDrawing),
		errors.Is(err, editor.ErrNotGeoJSON),
		errors.Is(err, editor.ErrNotImage):
		return http.StatusConflict, err.Error()

	case errors.Is(err, handle.ErrUnknownHandle),
		errors.Is(err, annotation.ErrTooFewPoints),
		errors.Is(err, annotation.ErrNameRequired),
		errors.Is(err, annotation.ErrAreaTooSmall),
		errors.Is(err, frame.ErrMalformed),
		errors.Is(err, frame.ErrEmpty),
		errors.Is(err, frame.ErrUnknownKind),
		errors.Is(err, geo.ErrInvalidBounds),
		errors.Is(err, geo.ErrUnknownDirection),
		errors.Is(err, model.ErrInvalidComposition),
		errors.Is(err, model.ErrInvalidPolygon):
		return http.StatusBadRequest, err.Error()
	}

	var se *geocode.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, geocode.UserMessage(err)
	}
	return http.StatusInternalServerError, "Server error: " + err.Error()
}

func respondError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
