// 包 guard：API 面的来源域名校验与安全/CORS 响应头合成
package guard

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// 文档注释：访问守卫
// 背景：程序化 API 面只对白名单域名开放；白名单在构造时编译为锚定的
// 大小写不敏感匹配器，进程生命周期内不可变。
// 约束：模式中的 * 匹配任意一段连续字符；匹配针对完整主机名整体锚定，
// 不是子串包含（example.com.evil.net 不会命中 *.example.com）。
type Guard struct {
	patterns      []*regexp.Regexp
	allowLocalDev bool
}

func New(allowedDomains []string, allowLocalDev bool) *Guard {
	g := &Guard{allowLocalDev: allowLocalDev}
	for _, p := range allowedDomains {
		re, err := compilePattern(p)
		if err != nil {
			continue
		}
		g.patterns = append(g.patterns, re)
	}
	return g
}

// compilePattern：白名单模式 → 锚定正则
// *.example.com → ^(?i).*\.example\.com$
func compilePattern(pattern string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	return regexp.Compile(`(?i)^` + quoted + `$`)
}

// DomainAllowed：主机名是否命中白名单
func (g *Guard) DomainAllowed(hostname string) bool {
	if hostname == "" {
		return false
	}
	for _, re := range g.patterns {
		if re.MatchString(hostname) {
			return true
		}
	}
	return false
}

// Authorized：域名授权判定
// 顺序：Origin 命中白名单 → 放行；否则 Referer 命中白名单或与请求主机同源 → 放行；
// 本地开发主机按配置放行；两个头都缺失的匿名调用方一律拒绝。
// NOTE: 「无 Origin 且无 Referer 即拒绝」是沿用的策略选择而非 CORS 技术要求，
// 它同时挡住了隐私模式下不带 Referer 的同源脚本请求；调整前需要产品侧确认。
func (g *Guard) Authorized(origin, referer, requestHost string) bool {
	if origin != "" {
		if g.DomainAllowed(hostOf(origin)) {
			return true
		}
	}
	if referer != "" {
		h := hostOf(referer)
		if h != "" && (h == requestHost || g.DomainAllowed(h)) {
			return true
		}
	}
	if g.allowLocalDev && (requestHost == "localhost" || requestHost == "127.0.0.1") {
		return true
	}
	return false
}

// hostOf：从 Origin/Referer 取主机名；解析失败返回空串
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// WriteSecurityHeaders：写入固定安全头与按需的 CORS 头
// 背景：安全头对所有响应生效，与授权结果无关；CORS 只回写白名单内调用方
// 自己的 Origin，绝不返回通配 *。
func (g *Guard) WriteSecurityHeaders(h http.Header, isAPI bool, origin string) {
	h.Set("X-Frame-Options", "SAMEORIGIN")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	if !isAPI {
		h.Set("Content-Security-Policy",
			"default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")
	}
	if isAPI && origin != "" && g.DomainAllowed(hostOf(origin)) {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", "86400")
	}
}
