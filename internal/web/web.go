// 包 web：展示层——HTML 页面、CLI 纯文本、健康检查与静态杂项
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"ip-query/internal/config"
	"ip-query/internal/guard"
	"ip-query/internal/logger"
)

//go:embed index.html.tmpl
var tmplFS embed.FS

var indexTmpl = template.Must(template.ParseFS(tmplFS, "index.html.tmpl"))

type indexData struct {
	TargetIP     string
	ErrorMessage string
	APIBase      string
}

// 文档注释：注册展示层路由
// 背景：页面只负责呈现，数据由页面脚本回调程序化查询面获取；
// 非浏览器调用方（curl/wget）直接返回纯文本地址，便于脚本取值。
// 约束：页面与杂项不做域名授权（spec 的 API 面专属策略）；安全头照常下发。
func Register(mux *http.ServeMux, cfg config.Config, g *guard.Guard) {
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		clientIP := clientAddr(r)
		ua := strings.ToLower(r.Header.Get("User-Agent"))
		if strings.Contains(ua, "curl") || strings.Contains(ua, "wget") {
			g.WriteSecurityHeaders(w.Header(), false, "")
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(clientIP + "\n"))
			return
		}

		target := clientIP
		errMsg := ""
		if q := r.URL.Query().Get("ip"); q != "" {
			if net.ParseIP(q) != nil {
				target = q
			} else {
				// 展示层的校验提示：参数非法时回退为访问者自身地址
				errMsg = "请输入有效的 IPv4 或 IPv6 地址"
			}
		}
		g.WriteSecurityHeaders(w.Header(), false, "")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, indexData{TargetIP: target, ErrorMessage: errMsg, APIBase: cfg.APIBase}); err != nil {
			logger.L().Error("index_render_error", "err", err)
		}
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		g.WriteSecurityHeaders(w.Header(), true, "")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		g.WriteSecurityHeaders(w.Header(), false, "")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
	})

	// favicon 代理：拉取失败或超时降级为 204，不影响页面
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		g.WriteSecurityHeaders(w.Header(), false, "")
		if cfg.FaviconURL != "" {
			hc := &http.Client{Timeout: 5 * time.Second}
			if resp, err := hc.Get(cfg.FaviconURL); err == nil {
				defer resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					w.Header().Set("Content-Type", "image/x-icon")
					w.Header().Set("Cache-Control", "public, max-age=86400")
					_, _ = io.Copy(w, resp.Body)
					return
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// clientAddr：展示层的来源地址解析，与 API 面保持同一优先级
func clientAddr(r *http.Request) string {
	if x := r.Header.Get("X-Forwarded-For"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := r.Header.Get("X-Real-IP"); x != "" {
		return x
	}
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return h
	}
	return r.RemoteAddr
}
