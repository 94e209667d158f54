package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ip-query/internal/cache/mem"
	"ip-query/internal/config"
	"ip-query/internal/geo"
	"ip-query/internal/guard"
	"ip-query/internal/ratelimit"
	"ip-query/internal/resolve"
)

type countingSource struct {
	calls int
	res   geo.Result
}

func (c *countingSource) Fetch(_ context.Context, ip string) geo.Result {
	c.calls++
	r := c.res
	if r.Data != nil {
		d := *r.Data
		d.IP = ip
		r.Data = &d
	}
	return r
}

func testConfig() config.Config {
	return config.Config{
		APIBase:       "/api",
		RatePerMinute: 10,
		RatePerHour:   100,
	}
}

func newTestMux(src resolve.Source) *http.ServeMux {
	cfg := testConfig()
	g := guard.New([]string{"*.example.com"}, false)
	p := resolve.New(mem.New(100, time.Minute), ratelimit.NewMemory(cfg.RatePerMinute, cfg.RatePerHour), src)
	return BuildRoutes(cfg, g, p)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) geo.Result {
	t.Helper()
	var res geo.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

func TestQueryRejectsAnonymousCaller(t *testing.T) {
	mux := newTestMux(&countingSource{res: geo.OK(&geo.Info{})})
	req := httptest.NewRequest(http.MethodGet, "/query?ip=8.8.8.8", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, 403, res.Ret)
	assert.Nil(t, res.Data)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestQueryLoopbackShortCircuits(t *testing.T) {
	src := &countingSource{res: geo.OK(&geo.Info{Country: "美国"})}
	mux := newTestMux(src)
	req := httptest.NewRequest(http.MethodGet, "/query?ip=127.0.0.1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	require.Equal(t, 200, res.Ret)
	require.NotNil(t, res.Data)
	assert.Equal(t, "127.0.0.1", res.Data.IP)
	assert.Equal(t, "Loopback", res.Data.ISP)
	assert.Equal(t, 0, src.calls)
	// 白名单 Origin 被回写
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestQueryMissThenHit(t *testing.T) {
	src := &countingSource{res: geo.OK(&geo.Info{Country: "美国", ISP: "Google"})}
	mux := newTestMux(src)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/query?ip=8.8.8.8", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := do()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache-Status"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, src.calls)

	// 命中缓存：不再查上游，也不出现限流头
	rec = do()
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache-Status"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 1, src.calls)
}

func TestQueryRateLimited(t *testing.T) {
	src := &countingSource{res: geo.OK(&geo.Info{Country: "美国"})}
	mux := newTestMux(src)

	// 每次换一个目标地址绕过缓存；同一来源身份累计配额
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/query?ip=8.8.4.%d", i), nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("X-Forwarded-For", "9.9.9.9")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	req := httptest.NewRequest(http.MethodGet, "/query?ip=8.8.4.200", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, 429, res.Ret)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 10, src.calls)
}

func TestQueryMalformedIPFallsBackToCaller(t *testing.T) {
	src := &countingSource{res: geo.OK(&geo.Info{Country: "x"})}
	mux := newTestMux(src)
	req := httptest.NewRequest(http.MethodGet, "/query?ip=999.1.1.1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("X-Forwarded-For", "55.66.77.88")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	require.NotNil(t, res.Data)
	// 非法参数被替换为访问者自身地址
	assert.Equal(t, "55.66.77.88", res.Data.IP)
}

func TestQueryRejectsNonGetMethods(t *testing.T) {
	src := &countingSource{res: geo.OK(&geo.Info{})}
	mux := newTestMux(src)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/query?ip=8.8.8.8", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Allow"))
		res := decode(t, rec)
		assert.Equal(t, 405, res.Ret)
	}
	// 非 GET 不进入解析管线
	assert.Equal(t, 0, src.calls)
}

func TestQueryPreflight(t *testing.T) {
	mux := newTestMux(&countingSource{res: geo.OK(&geo.Info{})})
	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestQueryUpstreamFailureCarriedInEnvelope(t *testing.T) {
	src := &countingSource{res: geo.Fail(504, "API 请求超时")}
	mux := newTestMux(src)
	req := httptest.NewRequest(http.MethodGet, "/query?ip=8.8.8.8", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// 上游失败按约定以 HTTP 200 承载，ret 表达结果
	assert.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, 504, res.Ret)
	assert.Nil(t, res.Data)
}
