package pricing

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ivcalc/response"
	"github.com/wyfcoding/ivcalc/xerrors"
)

// Handler 定价服务的 HTTP 处理器。
type Handler struct {
	svc *Service
}

// NewHandler 创建 HTTP 处理器实例。
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册 /api/v1/options 下的路由。
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/options")
	{
		api.POST("/price", h.Price)
		api.POST("/iv", h.ImpliedVol)
		api.POST("/vega", h.Vega)
		api.POST("/seed", h.Seed)
	}
}

// Price 计算理论价格。
func (h *Handler) Price(c *gin.Context) {
	var cmd PriceCommand
	if !bind(c, &cmd) {
		return
	}
	res, err := h.svc.Price(c.Request.Context(), cmd)
	reply(c, res, err)
}

// ImpliedVol 反解隐含波动率。
func (h *Handler) ImpliedVol(c *gin.Context) {
	var cmd ImpliedVolCommand
	if !bind(c, &cmd) {
		return
	}
	res, err := h.svc.ImpliedVol(c.Request.Context(), cmd)
	reply(c, res, err)
}

// Vega 计算 vega。
func (h *Handler) Vega(c *gin.Context) {
	var cmd VegaCommand
	if !bind(c, &cmd) {
		return
	}
	res, err := h.svc.Vega(c.Request.Context(), cmd)
	reply(c, res, err)
}

// Seed 返回解析初值。
func (h *Handler) Seed(c *gin.Context) {
	var cmd SeedCommand
	if !bind(c, &cmd) {
		return
	}
	res, err := h.svc.Seed(c.Request.Context(), cmd)
	reply(c, res, err)
}

func bind(c *gin.Context, cmd any) bool {
	if err := c.ShouldBindJSON(cmd); err != nil {
		response.Error(c, xerrors.Invalid(xerrors.ErrInvalidInput, "malformed request body: %v", err))
		return false
	}
	return true
}

func reply(c *gin.Context, data any, err error) {
	if err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		return
	}
	response.Success(c, data)
}
