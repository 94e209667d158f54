// 包 classify：特殊/保留地址判定，命中即合成结果，免去上游查询
package classify

import (
	"net"
	"strings"

	"ip-query/internal/geo"
)

// 文档注释：特殊地址规则表
// 背景：回环/私有/链路本地/组播等地址不可路由，上游无法给出有意义的归属；
// 按优先级顺序逐条匹配，首个命中即返回对应的固定文案。
// 约束：规则只增不改序；文案与线上部署保持一致，测试按表逐行校验。
type rule struct {
	name    string
	match   func(ip net.IP, raw string) bool
	country string
	isp     string
}

var rules = []rule{
	{"v4_loopback", v4Prefix(127), "本机", "Loopback"},
	{"v4_private_a", v4Prefix(10), "局域网", "A类私有地址"},
	{"v4_private_b", func(ip net.IP, _ string) bool {
		v := ip.To4()
		return v != nil && v[0] == 172 && v[1] >= 16 && v[1] <= 31
	}, "局域网", "B类私有地址"},
	{"v4_private_c", func(ip net.IP, _ string) bool {
		v := ip.To4()
		return v != nil && v[0] == 192 && v[1] == 168
	}, "局域网", "C类私有地址"},
	{"v4_link_local", func(ip net.IP, _ string) bool {
		v := ip.To4()
		return v != nil && v[0] == 169 && v[1] == 254
	}, "局域网", "链路本地地址"},
	{"v4_multicast", func(ip net.IP, _ string) bool {
		v := ip.To4()
		return v != nil && v[0] >= 224 && v[0] <= 239
	}, "保留地址", "组播地址"},
	{"v4_reserved", func(ip net.IP, _ string) bool {
		v := ip.To4()
		return v != nil && v[0] >= 240
	}, "保留地址", "保留地址"},
	{"v4_unspecified", v4Prefix(0), "保留地址", "未指定地址"},
	{"v6_loopback", v6Raw(func(s string) bool { return s == "::1" }), "本机", "Loopback"},
	{"v6_link_local", v6Raw(func(s string) bool { return strings.HasPrefix(s, "fe80:") }), "局域网", "链路本地地址"},
	{"v6_unique_local", v6Raw(func(s string) bool {
		return strings.HasPrefix(s, "fc") || strings.HasPrefix(s, "fd")
	}), "局域网", "唯一本地地址"},
	{"v6_unspecified", v6Raw(func(s string) bool { return s == "::" }), "保留地址", "未指定地址"},
}

func v4Prefix(first byte) func(net.IP, string) bool {
	return func(ip net.IP, _ string) bool {
		v := ip.To4()
		return v != nil && v[0] == first
	}
}

// v6Raw：基于原始文本（小写化）的 IPv6 规则
// 约束：仅作用于非 IPv4 地址；文本需已通过词法校验
func v6Raw(f func(string) bool) func(net.IP, string) bool {
	return func(ip net.IP, raw string) bool {
		return ip.To4() == nil && f(strings.ToLower(raw))
	}
}

// Classify：特殊地址判定
// 为什么：这些地址无需也不能查上游；命中结果不进缓存、不计限流配额，由调用方保证。
// 返回：命中时为合成的成功信封；未命中返回 false，表示需要继续走缓存与上游。
func Classify(ip string) (geo.Result, bool) {
	p := net.ParseIP(ip)
	if p == nil {
		return geo.Result{}, false
	}
	for _, r := range rules {
		if r.match(p, ip) {
			return geo.OK(&geo.Info{IP: ip, Country: r.country, ISP: r.isp}), true
		}
	}
	return geo.Result{}, false
}
