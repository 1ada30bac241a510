package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/codeloft/codeloft/pkg/models"
	"github.com/codeloft/codeloft/pkg/runtime"
	"github.com/codeloft/codeloft/pkg/store"
)

type memRuntime struct {
	workdir string
}

func (m *memRuntime) Workdir() string                                       { return m.workdir }
func (m *memRuntime) WriteFile(context.Context, string, []byte) error       { return nil }
func (m *memRuntime) MkdirAll(context.Context, string) error                { return nil }
func (m *memRuntime) Remove(context.Context, string, bool) error            { return nil }
func (m *memRuntime) Exec(context.Context, []string) (string, error)        { return "", nil }
func (m *memRuntime) WatchPaths(context.Context, runtime.WatchSpec, runtime.WatchCallback) (func(), error) {
	return nil, runtime.ErrWatchUnsupported
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.WorkbenchStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rt := &memRuntime{workdir: "/home/project"}
	files := store.NewFilesStore(rt, store.NewDeletionLedger(nil), store.FilesStoreOptions{})
	workbench := store.NewWorkbenchStore(rt, files)
	t.Cleanup(workbench.Close)

	h := NewFSHandler(workbench)
	r := gin.New()
	r.GET("/api/files", h.Snapshot)
	r.GET("/api/files/content", h.FileContent)
	r.POST("/api/files", h.CreateFile)
	r.DELETE("/api/files", h.DeleteFile)
	r.GET("/api/files/modified", h.Modified)
	r.POST("/api/folders", h.CreateFolder)
	return r, workbench
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndFetchFile(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/files", `{"path":"/home/project/a.txt","content":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/files/content?path=/home/project/a.txt", "")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", w.Code)
	}
	var resp models.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data, _ := resp.Data.(map[string]any)
	if data["content"] != "hello" {
		t.Errorf("content = %v, want hello", data["content"])
	}
}

func TestCreateFileRejectsOutsideWorkdir(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/files", `{"path":"/etc/passwd","content":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateFileRejectsBadBase64(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/files", `{"path":"/home/project/b.bin","content":"not-base64!","content_base64":true}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestFileContentRequiresPath(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/files/content", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing path status = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/files/content?path=/home/project/nope.txt", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
}

func TestDeleteFileUpdatesSnapshot(t *testing.T) {
	r, workbench := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/files", `{"path":"/home/project/a.txt","content":"x"}`)
	if w := doJSON(t, r, http.MethodDelete, "/api/files?path=/home/project/a.txt", ""); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	if workbench.Files().FilesCount() != 0 {
		t.Errorf("file counter = %d after delete, want 0", workbench.Files().FilesCount())
	}
}
