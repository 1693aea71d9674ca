package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/shoprec/core"
)

// handleMixed 处理混合流：GET /api/v1/recommendations?limit=&page=&window_days=
func (s *Server) handleMixed(c *gin.Context) {
	rctx := s.buildContext(c)
	limit := s.agg.ClampLimit(queryInt(c, "limit", 0))
	page := queryInt(c, "page", 1)
	if page <= 0 {
		page = 1
	}

	result, err := s.agg.GetMixed(c.Request.Context(), rctx, limit, (page-1)*limit)
	if err != nil {
		// 全部召回源失败才会走到这里，对外表现为暂时不可用
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "recommendations temporarily unavailable",
		})
		return
	}

	s.setCacheHeaders(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Items,
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
			"has_next":    result.HasNext,
			"has_prev":    result.HasPrev,
		},
	})
}

// handleCategory 处理单类目列表（popular / trending / personalized）。
func (s *Server) handleCategory(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rctx := s.buildContext(c)
		limit := s.agg.ClampLimit(queryInt(c, "limit", 0))

		items, err := s.agg.GetCategory(c.Request.Context(), rctx, kind, limit)
		if err != nil {
			if core.IsUnavailable(err) {
				// 上游暂时不可用时返回空列表而不是报错，前端无须特判
				items = nil
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   err.Error(),
				})
				return
			}
		}
		if items == nil {
			items = []*core.Item{}
		}

		s.setCacheHeaders(c)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    items,
			"count":   len(items),
		})
	}
}

// handleSimilar 处理相似商品：GET /api/v1/products/:id/similar?limit=
func (s *Server) handleSimilar(c *gin.Context) {
	productID := c.Param("id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "product ID is required",
		})
		return
	}

	rctx := s.buildContext(c)
	rctx.ProductID = productID
	limit := s.agg.ClampLimit(queryInt(c, "limit", 0))

	items, err := s.agg.GetSimilar(c.Request.Context(), rctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if items == nil {
		items = []*core.Item{}
	}

	s.setCacheHeaders(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"count":   len(items),
	})
}

// buildContext 从请求头解析身份，构造推荐上下文。
// X-User-ID 优先；只有 X-Session-ID 时按游客处理（个性化自动兜底热门）。
func (s *Server) buildContext(c *gin.Context) *core.RecommendContext {
	rctx := &core.RecommendContext{
		UserID:    c.GetHeader("X-User-ID"),
		SessionID: c.GetHeader("X-Session-ID"),
		Scene:     c.DefaultQuery("scene", "api"),
	}
	if wd := queryInt(c, "window_days", 0); wd > 0 {
		rctx.Params = map[string]any{"window_days": wd}
	}
	return rctx
}

func (s *Server) setCacheHeaders(c *gin.Context) {
	c.Header("Cache-Control", fmt.Sprintf(
		"public, max-age=%d, stale-while-revalidate=%d",
		int(s.opts.CacheMaxAge.Seconds()),
		int(s.opts.StaleWhileRevalidate.Seconds()),
	))
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return n
}
