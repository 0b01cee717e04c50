package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kythia/questapi/internal/core/catalog"
	"github.com/kythia/questapi/internal/core/quest"
)

// CatalogGate is the part of *catalog.Gate the handlers use.
type CatalogGate interface {
	Quests(ctx context.Context) ([]byte, error)
	Refresh(ctx context.Context) (*catalog.SyncResult, error)
}

// QuestReader is the part of *quest.Service the handlers use.
type QuestReader interface {
	Get(ctx context.Context, id string) (*quest.Document, error)
}

type QuestHandler struct {
	gate   CatalogGate
	quests QuestReader
}

func NewQuestHandler(gate CatalogGate, quests QuestReader) *QuestHandler {
	return &QuestHandler{gate: gate, quests: quests}
}

// List serves the cached catalog bytes as stored.
func (h *QuestHandler) List(c *gin.Context) {
	data, err := h.gate.Quests(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *QuestHandler) Get(c *gin.Context) {
	doc, err := h.quests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *QuestHandler) Sync(c *gin.Context) {
	result, err := h.gate.Refresh(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
