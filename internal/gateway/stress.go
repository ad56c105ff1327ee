package gateway

import (
	"context"
	"fmt"
	"io"

	"apimon/internal/model"
)

// StartStress 请求上游启动一次压测并返回NDJSON遥测流
//
// 返回的ReadCloser是上游响应体本身，按到达顺序产出分块字节，
// 调用方负责逐块喂给行解码器并在结束后Close。
// 取消ctx会中断流（浏览器断开或手动停止都走这条路）。
func (c *Client) StartStress(ctx context.Context, bearer string, req *model.StressRequest) (io.ReadCloser, error) {
	resp, err := c.stream.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/stress/start")
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	// 流式客户端不解析响应体，错误消息要自己读出来
	if resp.IsError() {
		raw := resp.RawBody()
		body, _ := io.ReadAll(io.LimitReader(raw, 4096))
		raw.Close()
		return nil, newUpstreamError(resp.StatusCode(), body)
	}
	return resp.RawBody(), nil
}
