package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeloft/codeloft/pkg/models"
	"github.com/codeloft/codeloft/pkg/store"
)

// ArtifactHandler accepts the artifact and action callbacks produced by
// the upstream message parser.
type ArtifactHandler struct {
	workbench *store.WorkbenchStore
}

func NewArtifactHandler(workbench *store.WorkbenchStore) *ArtifactHandler {
	return &ArtifactHandler{workbench: workbench}
}

// Register stores a new artifact. A missing id gets a generated one;
// re-registering a message id is a no-op.
func (h *ArtifactHandler) Register(c *gin.Context) {
	var req models.ArtifactCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	h.workbench.AddArtifact(req)
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: h.workbench.Artifact(req.MessageID)})
}

// Update merges display fields into an existing artifact.
func (h *ArtifactHandler) Update(c *gin.Context) {
	messageID := c.Param("messageId")
	var req models.ArtifactUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	h.workbench.UpdateArtifact(messageID, req)
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

// Get returns one artifact with its tracked actions.
func (h *ArtifactHandler) Get(c *gin.Context) {
	artifact := h.workbench.Artifact(c.Param("messageId"))
	if artifact == nil {
		c.JSON(http.StatusNotFound, models.Response{Code: 404, Message: "artifact not found"})
		return
	}
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: gin.H{
		"artifact": artifact,
		"actions":  artifact.Runner.Actions(),
	}})
}

// SubmitAction registers an action with its artifact's runner. The
// registration itself is queued, so a run submitted right after cannot
// overtake it.
func (h *ArtifactHandler) SubmitAction(c *gin.Context) {
	var req models.ActionCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	h.workbench.AddAction(req)
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}

// RunAction executes a previously submitted action.
func (h *ArtifactHandler) RunAction(c *gin.Context) {
	var req models.RunActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	h.workbench.RunAction(req)
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok"})
}
