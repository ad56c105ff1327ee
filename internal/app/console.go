package app

import (
	"net/http"
	"strconv"

	"apimon/internal/model"

	"github.com/gin-gonic/gin"
)

// 上游资源的CRUD透传层。权限校验（谁能改什么）由上游执行，
// 本层只负责会话换bearer、参数规整和响应信封转换。

// pathID 解析路径里的:id参数
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// ==================== 上游API管理 ====================

func (s *Server) handleListAPIs(c *gin.Context) {
	sess := currentSession(c)
	apis, err := s.gateway.ListAPIs(c.Request.Context(), sess.BearerToken)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSONWithCount(c, http.StatusOK, apis, len(apis))
}

func (s *Server) handleCreateAPI(c *gin.Context) {
	var api model.UpstreamAPI
	if err := c.ShouldBindJSON(&api); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid api payload")
		return
	}
	sess := currentSession(c)
	created, err := s.gateway.CreateAPI(c.Request.Context(), sess.BearerToken, &api)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusCreated, created)
}

func (s *Server) handleUpdateAPI(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var api model.UpstreamAPI
	if err := c.ShouldBindJSON(&api); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid api payload")
		return
	}
	sess := currentSession(c)
	updated, err := s.gateway.UpdateAPI(c.Request.Context(), sess.BearerToken, id, &api)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, updated)
}

func (s *Server) handleDeleteAPI(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	if err := s.gateway.DeleteAPI(c.Request.Context(), sess.BearerToken, id); err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, gin.H{"deleted": id})
}

// ==================== 限流档位管理 ====================

func (s *Server) handleListTiers(c *gin.Context) {
	sess := currentSession(c)
	tiers, err := s.gateway.ListTiers(c.Request.Context(), sess.BearerToken)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSONWithCount(c, http.StatusOK, tiers, len(tiers))
}

func (s *Server) handleCreateTier(c *gin.Context) {
	var tier model.Tier
	if err := c.ShouldBindJSON(&tier); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid tier payload")
		return
	}
	sess := currentSession(c)
	created, err := s.gateway.CreateTier(c.Request.Context(), sess.BearerToken, &tier)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusCreated, created)
}

func (s *Server) handleUpdateTier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var tier model.Tier
	if err := c.ShouldBindJSON(&tier); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid tier payload")
		return
	}
	sess := currentSession(c)
	updated, err := s.gateway.UpdateTier(c.Request.Context(), sess.BearerToken, id, &tier)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, updated)
}

func (s *Server) handleDeleteTier(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	if err := s.gateway.DeleteTier(c.Request.Context(), sess.BearerToken, id); err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, gin.H{"deleted": id})
}

// ==================== API密钥管理 ====================

func (s *Server) handleListKeys(c *gin.Context) {
	sess := currentSession(c)
	keys, err := s.gateway.ListMyKeys(c.Request.Context(), sess.BearerToken)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSONWithCount(c, http.StatusOK, keys, len(keys))
}

func (s *Server) handleListAllKeys(c *gin.Context) {
	sess := currentSession(c)
	keys, err := s.gateway.ListAllKeys(c.Request.Context(), sess.BearerToken)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSONWithCount(c, http.StatusOK, keys, len(keys))
}

func (s *Server) handleGenerateKey(c *gin.Context) {
	var req model.GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.APIID <= 0 || req.TierID <= 0 {
		RespondErrorMsg(c, http.StatusBadRequest, "api_id and tier_id are required")
		return
	}
	sess := currentSession(c)
	key, err := s.gateway.GenerateKey(c.Request.Context(), sess.BearerToken, &req)
	if err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	// 明文密钥仅此一次返回，之后的列表里不再出现
	RespondJSON(c, http.StatusCreated, key)
}

func (s *Server) handleRevokeKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	if err := s.gateway.RevokeKey(c.Request.Context(), sess.BearerToken, id); err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, gin.H{"revoked": id})
}

func (s *Server) handleDeleteKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess := currentSession(c)
	if err := s.gateway.DeleteKey(c.Request.Context(), sess.BearerToken, id); err != nil {
		RespondError(c, http.StatusBadGateway, err)
		return
	}
	RespondJSON(c, http.StatusOK, gin.H{"deleted": id})
}
