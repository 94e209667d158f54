// 包 logger：http 访问日志中间件，统一记录外部访问的关键维度（方法、路径、状态、耗时、来源地址）
package logger

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// statusWriter：包装 ResponseWriter 以捕获状态码与写出字节数
// 背景：标准库不暴露已写状态，需中间件层统计响应信息
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// clientAddr：访问日志用的来源地址
// 背景：本服务部署在反向代理/边缘之后，RemoteAddr 只是上一跳；
// 与业务层同序取可信代理头，日志里的来源才对得上限流身份。
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

// AccessMiddleware：生成访问日志中间件
// 为什么：统一记录外部访问，便于排查限流与缓存行为；不读取请求体
// 约束：正常访问记 Debug 控制量；5xx 升为 Warn，便于在默认级别下发现上游异常
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sw, r)
			lvl := slog.LevelDebug
			if sw.status >= 500 {
				lvl = slog.LevelWarn
			}
			l.Log(r.Context(), lvl, "http_access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"client", clientAddr(r),
				"remote", r.RemoteAddr,
				"ua", r.Header.Get("User-Agent"),
			)
		})
	}
}
