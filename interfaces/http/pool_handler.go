package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vocab-bot/usecase"
)

type IPoolHandler interface {
	Status(ctx *gin.Context)
}

type PoolHandler struct {
	poolUsecase usecase.IPoolUsecase
}

func NewPoolHandler(poolUsecase usecase.IPoolUsecase) IPoolHandler {
	return &PoolHandler{poolUsecase: poolUsecase}
}

// Status handles GET /api/pools.
func (h *PoolHandler) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.poolUsecase.Status())
}
