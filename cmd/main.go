// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"ip-query/internal/api"
	"ip-query/internal/cache"
	"ip-query/internal/cache/mem"
	"ip-query/internal/cache/rediscache"
	"ip-query/internal/config"
	"ip-query/internal/guard"
	"ip-query/internal/localdb"
	"ip-query/internal/logger"
	"ip-query/internal/metrics"
	"ip-query/internal/ratelimit"
	"ip-query/internal/resolve"
	"ip-query/internal/upstream"
	"ip-query/internal/utils"
	"ip-query/internal/version"
	"ip-query/internal/web"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")

	cfg := config.FromEnv()
	l.Debug("config_loaded", "api_base", cfg.APIBase, "cache_backend", cfg.CacheBackend, "rate_backend", cfg.RateBackend)
	if cfg.AppCode == "" && cfg.LocalMMDBPath == "" {
		l.Warn("appcode_missing", "hint", "set APPCODE to enable upstream queries")
	}

	// Redis 仅在任一后端选择 redis 时建立；失败回退进程内实现
	var rc = utils.OpenRedisFromEnv()
	if rc != nil {
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
			rc = nil
		} else {
			l.Info("redis_ping_ok")
		}
	}

	var store cache.Store
	var memCache *mem.Cache
	if cfg.CacheBackend == "redis" && rc != nil {
		store = rediscache.New(rc, cfg.CacheTTL)
		l.Info("cache_backend", "kind", "redis")
	} else {
		memCache = mem.New(cfg.CacheMaxEntries, cfg.CacheTTL)
		store = memCache
		l.Info("cache_backend", "kind", "memory")
	}

	var limiter ratelimit.Limiter
	var memLimiter *ratelimit.MemoryLimiter
	if cfg.RateBackend == "redis" && rc != nil {
		limiter = ratelimit.NewRedis(rc, cfg.RatePerMinute, cfg.RatePerHour)
		l.Info("rate_backend", "kind", "redis")
	} else {
		memLimiter = ratelimit.NewMemory(cfg.RatePerMinute, cfg.RatePerHour)
		limiter = memLimiter
		l.Info("rate_backend", "kind", "memory")
	}

	// 数据源：本地 MMDB 可用时优先，否则走 HTTP 上游
	var source resolve.Source
	if cfg.LocalMMDBPath != "" {
		if db, err := localdb.Open(cfg.LocalMMDBPath); err == nil {
			defer db.Close()
			source = db
			l.Info("source_local_mmdb", "path", cfg.LocalMMDBPath)
		} else {
			l.Error("mmdb_open_error", "path", cfg.LocalMMDBPath, "err", err)
		}
	}
	if source == nil {
		source = upstream.New(cfg.UpstreamBase, cfg.UpstreamPath, cfg.AppCode, cfg.UpstreamTimeout)
		l.Info("source_upstream", "base", cfg.UpstreamBase)
	}

	g := guard.New(cfg.AllowedDomains, cfg.AllowLocalDev)
	pipeline := resolve.New(store, limiter, source)

	// 周期清理：过期缓存条目与不活跃限流身份（仅进程内实现需要）
	if memCache != nil || memLimiter != nil {
		go func() {
			for {
				time.Sleep(5 * time.Minute)
				if memCache != nil {
					n := memCache.Sweep()
					l.Debug("cache_sweep_done", "removed", n)
				}
				if memLimiter != nil {
					n := memLimiter.Sweep()
					l.Debug("ratelimit_sweep_done", "removed", n)
				}
			}
		}()
	}

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(cfg, g, pipeline)
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())
	web.Register(mux, cfg, g)

	handler := logger.AccessMiddleware(l)(mux)
	s := &http.Server{Addr: cfg.Addr, Handler: handler}
	l.Info("listening", "addr", cfg.Addr, "commit", version.Commit)
	if err := s.ListenAndServe(); err != nil {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
}
