package handler

import (
	"archive/zip"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeloft/codeloft/pkg/store"
	"github.com/codeloft/codeloft/pkg/utils"
)

// SnapshotHandler exports the mirror as a downloadable archive.
type SnapshotHandler struct {
	workbench *store.WorkbenchStore
	workdir   string
}

func NewSnapshotHandler(workbench *store.WorkbenchStore, workdir string) *SnapshotHandler {
	return &SnapshotHandler{workbench: workbench, workdir: workdir}
}

// DownloadZip streams the current mirror as a zip archive. Entries are
// named relative to the workspace root; binary files are decoded back to
// their raw bytes.
func (h *SnapshotHandler) DownloadZip(c *gin.Context) {
	snapshot := h.workbench.Files().Snapshot()

	paths := make([]string, 0, len(snapshot))
	for p, d := range snapshot {
		if d.IsFile() {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="project.zip"`)

	zw := zip.NewWriter(c.Writer)
	defer func() { _ = zw.Close() }()

	now := time.Now()
	for _, p := range paths {
		rel := utils.RelativeTo(h.workdir, p)
		if rel == "" {
			continue
		}
		file := snapshot[p]

		var content []byte
		if file.IsBinary {
			decoded, err := base64.StdEncoding.DecodeString(file.Content)
			if err != nil {
				continue
			}
			content = decoded
		} else {
			text := file.Content
			// The single-space padding written for empty files unwinds to
			// an empty file on export.
			if text == " " {
				text = ""
			}
			content = []byte(text)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     strings.TrimPrefix(rel, "/"),
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return
		}
		if _, err := w.Write(content); err != nil {
			return
		}
	}
}
