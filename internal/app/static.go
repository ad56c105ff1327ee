package app

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// webRoot 静态文件目录
const webRoot = "web"

// serveStaticFile 处理 /web/*filepath 静态文件请求
// 路径穿越防护：规范化后必须仍落在web目录内
func serveStaticFile(c *gin.Context) {
	// Gin wildcard参数带前导斜杠，如 "/index.html"
	reqPath := strings.TrimPrefix(c.Param("filepath"), "/")
	if reqPath == "" {
		reqPath = "index.html"
	}

	clean := filepath.Clean(reqPath)
	if clean == ".." || strings.HasPrefix(clean, "../") || filepath.IsAbs(clean) {
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	c.File(filepath.Join(webRoot, clean))
}
