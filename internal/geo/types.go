// 包 geo：对外统一的查询结果模型，贯穿缓存、上游客户端与 HTTP 层
package geo

// 文档注释：查询返回信封（对外）
// 背景：与上游提供方的 {ret,msg,data} 信封保持同构，缓存与透传无需转换；
// ret 采用 HTTP 语义（200 成功 / 403 拒绝 / 429 限流 / 500 错误 / 504 超时）。
// 约束：Data 仅在 ret==200 时出现；字段稳定，新增需评估前端与缓存兼容性。
type Result struct {
	Ret  int    `json:"ret"`
	Msg  string `json:"msg"`
	Data *Info  `json:"data,omitempty"`
}

// 文档注释：地理信息载荷
// 背景：字段名与上游线上格式一致（snake_case），全部为字符串，空串表示未知；
// 不使用 null，避免前端与缓存层的空值分支。
type Info struct {
	IP         string `json:"ip"`
	Country    string `json:"country"`
	CountryID  string `json:"country_id"`
	Area       string `json:"area"`
	Region     string `json:"region"`
	RegionID   string `json:"region_id"`
	City       string `json:"city"`
	CityID     string `json:"city_id"`
	District   string `json:"district"`
	DistrictID string `json:"district_id"`
	ISP        string `json:"isp"`
	Lat        string `json:"lat"`
	Lng        string `json:"lng"`
}

// OK：构造成功信封；data 归属权转移给返回值
func OK(data *Info) Result { return Result{Ret: 200, Msg: "success", Data: data} }

// Fail：构造失败信封（无 data）
func Fail(ret int, msg string) Result { return Result{Ret: ret, Msg: msg} }
