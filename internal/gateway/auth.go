package gateway

import (
	"context"

	"apimon/internal/model"
)

// loginResponse 上游OAuth2口令端点的响应
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login 用表单编码的凭据换取上游bearer token
// 上游是OAuth2 password flow，必须用form而不是JSON
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out loginResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		SetResult(&out).
		Post("/auth/login")
	if err := checkResp(resp, err); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// RegisterRequest 注册新用户
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register 在上游创建用户，成功后仍需调用Login获取token
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		Post("/auth/register")
	return checkResp(resp, err)
}

// Me 用bearer token查询当前用户身份（含角色）
func (c *Client) Me(ctx context.Context, bearer string) (*model.User, error) {
	var out model.User
	resp, err := c.rest.R().
		SetContext(ctx).
		SetAuthToken(bearer).
		SetResult(&out).
		Get("/auth/me")
	if err := checkResp(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
