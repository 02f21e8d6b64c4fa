package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vocab-bot/domain/dto"
	"vocab-bot/domain/model"
	"vocab-bot/infrastructure/logger"
	"vocab-bot/interfaces/middleware"
	"vocab-bot/usecase"
)

type ILinkHandler interface {
	GetLink(ctx *gin.Context)
	ResolveLink(ctx *gin.Context)
	EnqueueLink(ctx *gin.Context)
}

type LinkHandler struct {
	linkUsecase usecase.ILinkUsecase
}

func NewLinkHandler(linkUsecase usecase.ILinkUsecase) ILinkHandler {
	return &LinkHandler{linkUsecase: linkUsecase}
}

// bindKey reads the request and pins the chat id to the token's.
func bindKey(ctx *gin.Context) (model.LinkKey, bool) {
	var req dto.LinkRequest
	var err error
	if ctx.Request.Method == http.MethodGet {
		err = ctx.ShouldBindQuery(&req)
	} else {
		err = ctx.ShouldBindJSON(&req)
	}
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return model.LinkKey{}, false
	}

	req.ChatID = ctx.GetInt64(middleware.ChatIDKey)
	return req.Key(), true
}

func writeError(ctx *gin.Context, err error) {
	if errors.Is(err, usecase.ErrInvalidLinkRequest) {
		ctx.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	if errors.Is(err, usecase.ErrQueueUnavailable) {
		ctx.JSON(http.StatusServiceUnavailable, dto.Res{ResponseCode: "503", ResponseMessage: err.Error()})
		return
	}
	logger.GetLogger().WithField("error", err).Error("Link request failed")
	ctx.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: "Internal server error"})
}

// GetLink handles GET /api/links?word=&lang= from the cache only.
func (h *LinkHandler) GetLink(ctx *gin.Context) {
	key, ok := bindKey(ctx)
	if !ok {
		return
	}

	outcome, found, err := h.linkUsecase.CachedLink(ctx.Request.Context(), key)
	if err != nil {
		writeError(ctx, err)
		return
	}
	if !found {
		ctx.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "No link cached for this word"})
		return
	}
	ctx.JSON(http.StatusOK, dto.NewLinkResponse(key, outcome, true))
}

// ResolveLink handles POST /api/links/resolve and waits for the outcome.
func (h *LinkHandler) ResolveLink(ctx *gin.Context) {
	key, ok := bindKey(ctx)
	if !ok {
		return
	}

	outcome, cached, err := h.linkUsecase.AwaitLink(ctx.Request.Context(), key)
	if err != nil {
		writeError(ctx, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == model.StatusTimeout {
		status = http.StatusAccepted
	}
	ctx.JSON(status, dto.NewLinkResponse(key, outcome, cached))
}

// EnqueueLink handles POST /api/links/enqueue.
func (h *LinkHandler) EnqueueLink(ctx *gin.Context) {
	key, ok := bindKey(ctx)
	if !ok {
		return
	}

	enqueued, err := h.linkUsecase.EnqueueLink(ctx.Request.Context(), key)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusAccepted, dto.EnqueueResponse{Key: key.String(), Enqueued: enqueued})
}
