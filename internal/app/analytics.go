package app

import (
	"net/http"
	"time"

	"apimon/internal/analytics"
	"apimon/internal/model"

	"github.com/gin-gonic/gin"
)

// GET /console/analytics?range=24h
// admin看全局聚合，普通用户看自己的；输出按时间范围过滤并
// 格式化成图表点（IST时区标签，升序）
func (s *Server) handleAnalytics(c *gin.Context) {
	sess := currentSession(c)
	rangeSelector := analytics.NormalizeRange(c.Query("range"))

	scope := "me:" + sess.Username
	if sess.Role == model.RoleAdmin {
		scope = "admin"
	}

	// 缓存命中直接返回（禁用时永远未命中）
	if points, ok := s.cache.GetCharts(c.Request.Context(), scope, rangeSelector); ok {
		RespondJSONWithCount(c, http.StatusOK, points, len(points))
		return
	}

	var records []model.AnalyticsRecord
	var err error
	if sess.Role == model.RoleAdmin {
		records, err = s.gateway.AdminAnalytics(c.Request.Context(), sess.BearerToken)
	} else {
		records, err = s.gateway.MyAnalytics(c.Request.Context(), sess.BearerToken)
	}
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}

	points := analytics.FormatForCharts(records, rangeSelector, time.Now())
	s.cache.SetCharts(c.Request.Context(), scope, rangeSelector, points)

	RespondJSONWithCount(c, http.StatusOK, points, len(points))
}

// GET /console/analytics/usage （admin）
func (s *Server) handleUsageSummary(c *gin.Context) {
	sess := currentSession(c)
	summary, err := s.gateway.UsageSummary(c.Request.Context(), sess.BearerToken)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, summary)
}

// POST /console/analytics/aggregate （admin）
// 触发上游立即聚合一轮，并把本地缓存的快照作废
func (s *Server) handleTriggerAggregation(c *gin.Context) {
	sess := currentSession(c)
	if err := s.gateway.TriggerAggregation(c.Request.Context(), sess.BearerToken); err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}

	s.cache.InvalidateCharts(c.Request.Context(), "admin")
	s.cache.InvalidateCharts(c.Request.Context(), "me:"+sess.Username)

	RespondJSON(c, http.StatusOK, gin.H{"message": "aggregation triggered"})
}
