package routes

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupUploadHandlers registers the image upload and delete endpoints
func (h *Handlers) SetupUploadHandlers(router *gin.RouterGroup) {
	router.POST("/upload", h.Upload)
	router.DELETE("/delete", h.DeleteUpload)
}

// Upload stores the multipart "file" part in the uploads directory
func (h *Handlers) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file"})
		return
	}
	log.Printf("[UPLOAD] File received: name=%s type=%s size=%d",
		fh.Filename, fh.Header.Get("Content-Type"), fh.Size)

	f, err := fh.Open()
	if err != nil {
		respondError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	// one byte past the limit is enough to reject
	data, err := io.ReadAll(io.LimitReader(f, h.Uploads.MaxBytes()+1))
	if err != nil {
		respondError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := h.Uploads.Save(fh.Filename, fh.Header.Get("Content-Type"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type deleteUploadRequest struct {
	Filename string `json:"filename"`
}

// DeleteUpload removes a file from the uploads directory
func (h *Handlers) DeleteUpload(c *gin.Context) {
	var req deleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.Uploads.Delete(req.Filename); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
