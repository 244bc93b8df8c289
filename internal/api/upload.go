package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/muneemjee/ledger/internal/auth"
)

// Upload handles POST /upload: multipart form with a "file" field. Responds
// with the object key and a signed download URL.
func (s *Server) Upload(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	upload, err := s.svc.UploadFile(c.Request.Context(), userID, fileHeader.Filename, contentType, file)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}
