package model

import "errors"

// 表单校验错误（网络调用前拦截）
var (
	ErrStressEndpointRequired = errors.New("target_endpoint is required")
	ErrStressKeyRequired      = errors.New("api_key is required")
)
