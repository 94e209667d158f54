// 包 localdb：本地 MMDB 数据源，可替代 HTTP 上游提供离线查询
package localdb

import (
	"context"
	"net"
	"strconv"

	"github.com/oschwald/geoip2-golang"

	"ip-query/internal/geo"
	"ip-query/internal/logger"
)

// 文档注释：本地 MMDB 读取器
// 背景：配置 LOCAL_MMDB_PATH 后，查询不再出网，直接读 GeoLite2-City 库；
// 返回与上游一致的信封，管线与缓存层无感知。
// 约束：读取器并发安全，进程内共享一个句柄；库未收录的地址返回 404，
// 管线不会将其写入缓存。
type MMDB struct {
	reader *geoip2.Reader
}

func Open(path string) (*MMDB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MMDB{reader: r}, nil
}

func (m *MMDB) Close() error { return m.reader.Close() }

// Fetch：本地库查询；与 upstream.Client 同构，二者择一注入管线
func (m *MMDB) Fetch(_ context.Context, ip string) geo.Result {
	p := net.ParseIP(ip)
	if p == nil {
		return geo.Fail(500, "无效的 IP 地址")
	}
	rec, err := m.reader.City(p)
	if err != nil {
		logger.L().Error("mmdb_lookup_error", "ip", ip, "err", err)
		return geo.Fail(500, "本地库查询失败: "+err.Error())
	}
	if rec.Country.IsoCode == "" && len(rec.Subdivisions) == 0 && cityName(rec) == "" {
		return geo.Fail(404, "本地库未收录该地址")
	}
	info := &geo.Info{
		IP:        ip,
		Country:   localized(rec.Country.Names),
		CountryID: rec.Country.IsoCode,
		City:      cityName(rec),
		ISP:       "",
		Lat:       strconv.FormatFloat(rec.Location.Latitude, 'f', 4, 64),
		Lng:       strconv.FormatFloat(rec.Location.Longitude, 'f', 4, 64),
	}
	if len(rec.Subdivisions) > 0 {
		info.Region = localized(rec.Subdivisions[0].Names)
		info.RegionID = rec.Subdivisions[0].IsoCode
	}
	return geo.OK(info)
}

func cityName(rec *geoip2.City) string { return localized(rec.City.Names) }

// localized：优先中文名，缺失回退英文
func localized(names map[string]string) string {
	if v := names["zh-CN"]; v != "" {
		return v
	}
	return names["en"]
}
