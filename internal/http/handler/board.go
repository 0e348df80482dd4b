package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"vibecoder.app/console/common/logger"
	"vibecoder.app/console/internal/http/dto"
	"vibecoder.app/console/internal/model"
	"vibecoder.app/console/internal/store"
)

type BoardHandler struct {
	boards store.BoardStore
}

func NewBoardHandler(boards store.BoardStore) *BoardHandler {
	return &BoardHandler{boards: boards}
}

func threadParam(c *gin.Context) (model.ThreadID, bool) {
	thread, err := model.NewThreadID(c.Param("thread_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing thread_id"})
		return model.ThreadID{}, false
	}
	c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
		ThreadID:  logger.Ptr(thread.String()),
		Component: "console.http.board",
	}))
	return thread, true
}

func (h *BoardHandler) Get(c *gin.Context) {
	thread, ok := threadParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	doc, err := h.boards.Get(ctx, thread)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "board not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to read board", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read board"})
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardResponse(thread, doc))
}

func (h *BoardHandler) Put(c *gin.Context) {
	thread, ok := threadParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req dto.PutBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid board request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: body must be a board with non-empty tasks"})
		return
	}

	rev, err := h.boards.Put(ctx, thread, req.Snapshot())
	if err != nil {
		slog.ErrorContext(ctx, "failed to write board", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write board"})
		return
	}

	slog.InfoContext(ctx, "board updated", "revision", rev, "phase", req.Phase, "tasks", len(req.Tasks))
	c.JSON(http.StatusOK, dto.WriteBoardResponse{ThreadID: thread.String(), Revision: rev})
}

func (h *BoardHandler) Delete(c *gin.Context) {
	thread, ok := threadParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	rev, err := h.boards.Delete(ctx, thread)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "board not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete board", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete board"})
		return
	}

	slog.InfoContext(ctx, "board deleted", "revision", rev)
	c.JSON(http.StatusOK, dto.WriteBoardResponse{ThreadID: thread.String(), Revision: rev})
}
