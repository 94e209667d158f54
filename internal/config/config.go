// 包 config：进程级配置，启动时从环境变量读取一次，此后只读
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// 文档注释：应用配置
// 背景：集中所有可调参数，构造后注入各组件；避免散落的 os.Getenv 导致行为不可测。
// 约束：进程生命周期内不可变；域名白名单在 guard 层编译为匹配器后同样不再变更。
type Config struct {
	Addr    string
	APIBase string

	// 上游提供方
	AppCode         string
	UpstreamBase    string
	UpstreamPath    string
	UpstreamTimeout time.Duration

	// 缓存
	CacheTTL        time.Duration
	CacheMaxEntries int
	CacheBackend    string // memory | redis

	// 限流
	RatePerMinute int
	RatePerHour   int
	RateBackend   string // memory | redis

	// 访问控制
	AllowedDomains []string
	AllowLocalDev  bool

	// 可选：本地 MMDB 数据源（设置后替代 HTTP 上游）
	LocalMMDBPath string

	FaviconURL string
}

// 默认白名单：与线上部署一致，可被 ALLOWED_DOMAINS 整体覆盖
var defaultAllowedDomains = []string{
	"*.cjp-jx.workers.dev",
	"*.000180.xyz",
	"*.cencs.com",
	"localhost",
	"127.0.0.1",
}

// FromEnv：从环境变量构建配置
// 背景：沿用「缺省值 + 按需覆盖」的读取方式；解析失败静默回退默认值，启动不因个别变量中断
func FromEnv() Config {
	c := Config{
		Addr:            envOr("ADDR", ":8080"),
		APIBase:         envOr("API_BASE", "/api"),
		AppCode:         os.Getenv("APPCODE"),
		UpstreamBase:    envOr("UPSTREAM_BASE", "https://c2ba.api.huachen.cn"),
		UpstreamPath:    envOr("UPSTREAM_PATH", "/ip"),
		UpstreamTimeout: time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,
		CacheTTL:        time.Duration(envInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		CacheMaxEntries: envInt("CACHE_MAX_ENTRIES", 1000),
		CacheBackend:    envOr("CACHE_BACKEND", "memory"),
		RatePerMinute:   envInt("RATE_PER_MINUTE", 10),
		RatePerHour:     envInt("RATE_PER_HOUR", 100),
		RateBackend:     envOr("RATE_BACKEND", "memory"),
		AllowLocalDev:   envOr("ALLOW_LOCAL_DEV", "true") == "true",
		LocalMMDBPath:   os.Getenv("LOCAL_MMDB_PATH"),
		FaviconURL:      envOr("FAVICON_URL", "https://dl.cencs.com/static/ip/favicon.ico"),
	}
	if s := os.Getenv("ALLOWED_DOMAINS"); s != "" {
		for _, d := range strings.Split(s, ",") {
			d = strings.TrimSpace(d)
			if d != "" {
				c.AllowedDomains = append(c.AllowedDomains, d)
			}
		}
	}
	if len(c.AllowedDomains) == 0 {
		c.AllowedDomains = defaultAllowedDomains
	}
	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
