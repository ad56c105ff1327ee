package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"apimon/internal/config"
	"apimon/internal/model"
	"apimon/internal/stress"

	"github.com/gin-gonic/gin"
)

// POST /console/stress/start
// 向上游发起压测并把NDJSON遥测流原样透传给浏览器，同时逐块喂给
// 行解码器折叠进会话状态。浏览器断开不终止压测：会话继续由后台
// 协程消费，可通过快照端点继续观察。
func (s *Server) handleStartStress(c *gin.Context) {
	var req model.StressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErrorMsg(c, http.StatusBadRequest, "invalid stress payload")
		return
	}
	if err := req.Validate(); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}

	sess := currentSession(c)

	// 流的生命周期独立于本次HTTP请求，停止走session.Stop()
	streamCtx, cancel := context.WithCancel(context.Background())

	body, err := s.gateway.StartStress(streamCtx, sess.BearerToken, &req)
	if err != nil {
		cancel()
		RespondError(c, http.StatusBadGateway, err)
		return
	}

	run := stress.NewSession(sess.Username, req, s.cfg.StressLogCapacity, config.StressSeriesCapacity)
	s.stressReg.Add(run)

	// 手动停止 → 取消上游流
	go func() {
		<-run.StopCh()
		cancel()
	}()

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("X-Stress-Session-Id", run.ID)
	c.Header("Cache-Control", "no-cache")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	s.consumeStressStream(run, body, c.Writer)
}

// consumeStressStream 读上游流直到结束：每个分块先折叠进会话，
// 再尽力转发给浏览器（转发失败只停转发，不停折叠）
func (s *Server) consumeStressStream(run *stress.Session, body io.ReadCloser, w gin.ResponseWriter) {
	defer body.Close()

	dec := stress.NewLineDecoder()
	buf := make([]byte, config.StressStreamBufSize)
	forward := w != nil

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(buf[:n]) {
				run.Apply(ev)
			}
			if forward {
				if _, werr := w.Write(buf[:n]); werr != nil {
					forward = false
				} else {
					w.Flush()
				}
			}
		}
		if err != nil {
			for _, ev := range dec.Finish() {
				run.Apply(ev)
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) && run.Running() {
				run.Fail(err)
			}
			break
		}
	}

	run.Stop()
	s.archiveStressRun(run)
}

// archiveStressRun 归档结束的压测（失败只记日志，不影响会话状态）
func (s *Server) archiveStressRun(run *stress.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	record := run.Run()
	if err := s.store.RecordStressRun(ctx, &record); err != nil {
		log.Printf("[WARN] 压测归档失败: %v", err)
	}
}

// GET /console/stress/:id
// 会话状态快照（浏览器断开重连后的轮询接口）
func (s *Server) handleStressSnapshot(c *gin.Context) {
	run, ok := s.stressReg.Get(c.Param("id"))
	if !ok {
		RespondErrorMsg(c, http.StatusNotFound, "stress session not found")
		return
	}
	if !s.canAccessRun(c, run.Username) {
		RespondErrorMsg(c, http.StatusForbidden, "not your stress session")
		return
	}
	RespondJSON(c, http.StatusOK, run.Snapshot())
}

// POST /console/stress/:id/stop
func (s *Server) handleStopStress(c *gin.Context) {
	run, ok := s.stressReg.Get(c.Param("id"))
	if !ok {
		RespondErrorMsg(c, http.StatusNotFound, "stress session not found")
		return
	}
	if !s.canAccessRun(c, run.Username) {
		RespondErrorMsg(c, http.StatusForbidden, "not your stress session")
		return
	}
	run.Stop()
	RespondJSON(c, http.StatusOK, gin.H{"stopped": run.ID})
}

// GET /console/stress/runs
// 压测历史：普通用户只看自己的，admin看全部
func (s *Server) handleStressRuns(c *gin.Context) {
	sess := currentSession(c)
	username := sess.Username
	if sess.Role == model.RoleAdmin {
		username = ""
	}

	runs, err := s.store.ListStressRuns(c.Request.Context(), username, config.StressRunHistoryLimit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	RespondJSONWithCount(c, http.StatusOK, runs, len(runs))
}

// canAccessRun 会话归属检查（admin放行）
func (s *Server) canAccessRun(c *gin.Context, owner string) bool {
	sess := currentSession(c)
	return sess != nil && (sess.Role == model.RoleAdmin || sess.Username == owner)
}
