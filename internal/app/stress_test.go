package app

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

// startStress 发起压测并读完整个透传流，返回会话ID和流内容
func startStress(t *testing.T, env *testEnv, token string) (string, string) {
	t.Helper()

	raw, _ := sonic.Marshal(map[string]any{
		"target_endpoint": "/v1/orders",
		"api_key":         "sk-test",
		"num_users":       5,
		"spawn_rate":      1,
		"duration":        10,
	})
	req, _ := http.NewRequest(http.MethodPost, env.http.URL+"/console/stress/start", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("发起压测失败: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("发起压测失败: %d %s", resp.StatusCode, body)
	}

	streamed, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("读流失败: %v", err)
	}
	return resp.Header.Get("X-Stress-Session-Id"), string(streamed)
}

func TestStress_StreamAndSnapshot(t *testing.T) {
	env := newTestEnv(t)
	// 遥测脚本：日志、分块到达的汇总行、完成标记
	env.upstream.StressScript = []string{
		"{\"log\":\"Spawning 5 users...\"}\n{\"log\":\"Aggregated: 100 req ",
		"(2.0%) | 50.0 avg 10.0 min 80.0 max | 12.5 rps 0.25 fail\"}\n",
		"{\"status\":\"completed\"}\n",
	}
	token := env.login(t, "bob", "hunter2")

	id, streamed := startStress(t, env, token)
	if id == "" {
		t.Fatal("响应应携带会话ID头")
	}
	if !strings.Contains(streamed, "Spawning 5 users") {
		t.Errorf("原始流应透传给客户端: %s", streamed)
	}

	// 流读完后会话应已结束，快照可查
	resp, envelope := env.doJSON(t, http.MethodGet, "/console/stress/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("快照查询失败: %d", resp.StatusCode)
	}
	data := envelope["data"].(map[string]any)
	if data["running"] != false || data["completed"] != true {
		t.Errorf("会话应已正常完成: running=%v completed=%v", data["running"], data["completed"])
	}

	stats := data["stats"].(map[string]any)
	if stats["total_requests"].(float64) != 100 || stats["fail_rate"].(float64) != 2.0 {
		t.Errorf("汇总统计错误: %v", stats)
	}
	if stats["max_latency"].(float64) != 80.0 || stats["current_rps"].(float64) != 12.5 {
		t.Errorf("汇总统计错误: %v", stats)
	}

	series := data["series"].([]any)
	if len(series) != 1 {
		t.Fatalf("应产生1个时序点: %v", series)
	}

	logs := data["logs"].([]any)
	if len(logs) != 4 { // 初始化行 + 2条日志 + 完成标记
		t.Errorf("日志条数错误: %v", logs)
	}
	if logs[len(logs)-1] != ">>> TEST COMPLETED <<<" {
		t.Errorf("最后一条应为完成标记: %v", logs[len(logs)-1])
	}
}

func TestStress_RunArchived(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.StressScript = []string{
		"{\"log\":\"Aggregated: 100 req (2.0%) | 50.0 avg 10.0 min 80.0 max | 12.5 rps 0.25 fail\"}\n",
		"{\"status\":\"completed\"}\n",
	}
	token := env.login(t, "bob", "hunter2")
	id, _ := startStress(t, env, token)

	resp, envelope := env.doJSON(t, http.MethodGet, "/console/stress/runs", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("历史查询失败: %d", resp.StatusCode)
	}
	runs := envelope["data"].([]any)
	if len(runs) != 1 {
		t.Fatalf("应归档1条记录: %v", runs)
	}
	run := runs[0].(map[string]any)
	if run["id"] != id || run["completed"] != true || run["total_requests"].(float64) != 100 {
		t.Errorf("归档记录错误: %v", run)
	}
}

func TestStress_ValidationRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "bob", "hunter2")

	resp, envelope := env.doJSON(t, http.MethodPost, "/console/stress/start", token, map[string]any{
		"api_key": "sk-test",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("缺endpoint应400: %d", resp.StatusCode)
	}
	if !strings.Contains(envelope["error"].(string), "endpoint") {
		t.Errorf("错误消息应指向缺失字段: %v", envelope["error"])
	}
}

func TestStressSnapshot_NotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "bob", "hunter2")

	resp, _ := env.doJSON(t, http.MethodGet, "/console/stress/no-such-id", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("未知会话应404: %d", resp.StatusCode)
	}
}

func TestStressSnapshot_Ownership(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.StressScript = []string{"{\"status\":\"completed\"}\n"}

	bobToken := env.login(t, "bob", "hunter2")
	id, _ := startStress(t, env, bobToken)

	// 别的普通用户不可见，admin可见
	env.upstream.AddUser("carol", newPlainUser("pw"))
	carolToken := env.login(t, "carol", "pw")
	resp, _ := env.doJSON(t, http.MethodGet, "/console/stress/"+id, carolToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("他人会话应403: %d", resp.StatusCode)
	}

	adminToken := env.login(t, "alice", "secret")
	resp, _ = env.doJSON(t, http.MethodGet, "/console/stress/"+id, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin应可见所有会话: %d", resp.StatusCode)
	}
}
