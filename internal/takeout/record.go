// Package takeout 解析 Google Takeout 的边车 JSON 记录，并从中解析规范时间戳。
package takeout

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record 是一条边车元数据记录。保留全部原始键值（包括未知字段），
// 合并阶段的“不丢信息”不变量依赖这一点。
type Record map[string]any

// Parse 解析边车 JSON。记录必须是一个 JSON 对象；
// 其他形态（数组/标量）视为无效记录。
func Parse(b []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("边车 JSON 解析失败：%w", err)
	}
	return rec, nil
}

// Timestamp 读取 rec[key]["timestamp"]（Takeout 把时间戳编码为字符串，
// 偶尔也有数字形态）。两种都接受。
func (r Record) Timestamp(key string) (int64, bool) {
	sub, ok := r[key].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := sub["timestamp"].(type) {
	case string:
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ts <= 0 {
			return 0, false
		}
		return ts, true
	case float64:
		if v <= 0 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// Clone 做一层浅拷贝加子 map 拷贝，合并阶段在副本上工作，
// 保证输入记录只读。
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if sub, ok := v.(map[string]any); ok {
			cp := make(map[string]any, len(sub))
			for sk, sv := range sub {
				cp[sk] = sv
			}
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Cleanup 去掉没有信息量的字段：空 description、全零的 geoData/geoDataExif。
// 这是唯一允许“丢弃”的地方——丢的都是确定无信息的值。
func Cleanup(rec Record) Record {
	if rec == nil {
		return rec
	}
	if d, ok := rec["description"].(string); ok && d == "" {
		delete(rec, "description")
	}
	for _, k := range []string{"geoData", "geoDataExif"} {
		if geo, ok := rec[k].(map[string]any); ok && isZeroGeo(geo) {
			delete(rec, k)
		}
	}
	return rec
}

func isZeroGeo(geo map[string]any) bool {
	for _, k := range []string{"latitude", "longitude", "altitude", "latitudeSpan", "longitudeSpan"} {
		if f, ok := geo[k].(float64); ok && f != 0 {
			return false
		}
	}
	return true
}
