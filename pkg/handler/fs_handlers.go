package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codeloft/codeloft/pkg/models"
	"github.com/codeloft/codeloft/pkg/store"
)

// FSHandler serves the file mirror: snapshot, content reads, writes and
// deletions, and the modification views.
type FSHandler struct {
	workbench *store.WorkbenchStore
}

func NewFSHandler(workbench *store.WorkbenchStore) *FSHandler {
	return &FSHandler{workbench: workbench}
}

func (h *FSHandler) files() *store.FilesStore { return h.workbench.Files() }

// Snapshot returns every tracked entry plus the file count.
func (h *FSHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: gin.H{
		"files": h.files().Snapshot(),
		"count": h.files().FilesCount(),
	}})
}

// FileContent returns the content of a single tracked file.
func (h *FSHandler) FileContent(c *gin.Context) {
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	file := h.files().GetFile(p)
	if file == nil {
		c.JSON(http.StatusNotFound, models.Response{Code: 404, Message: "file not tracked"})
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: file})
}

// CreateFile creates or overwrites a file.
func (h *FSHandler) CreateFile(c *gin.Context) {
	var req models.CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}

	content := []byte(req.Content)
	if req.ContentBase64 {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "content is not valid base64"})
			return
		}
		content = decoded
	}

	if err := h.files().CreateFile(c.Request.Context(), req.Path, content, req.ContentBase64); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

// CreateFolder creates a folder.
func (h *FSHandler) CreateFolder(c *gin.Context) {
	var req models.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	if err := h.files().CreateFolder(c.Request.Context(), req.Path); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

// DeleteFile removes a file and records it in the deletion ledger.
func (h *FSHandler) DeleteFile(c *gin.Context) {
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	if err := h.files().DeleteFile(c.Request.Context(), p); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

// DeleteFolder removes a folder recursively.
func (h *FSHandler) DeleteFolder(c *gin.Context) {
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	if err := h.files().DeleteFolder(c.Request.Context(), p); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

// Modified returns files that diverged from the checkpoint baseline.
func (h *FSHandler) Modified(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: h.files().ModifiedFiles()})
}

// Diffs returns a patch-format diff per modified text file.
func (h *FSHandler) Diffs(c *gin.Context) {
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: h.files().ModifiedFileDiffs()})
}

// ResetCheckpoint starts a fresh modification baseline.
func (h *FSHandler) ResetCheckpoint(c *gin.Context) {
	h.workbench.ResetCheckpoint()
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

func respondStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrInvalidPath) {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, models.Response{Code: 500, Message: err.Error()})
}
