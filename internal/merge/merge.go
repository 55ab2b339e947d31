// Package merge 实现保守合并：多条指向同一逻辑项的元数据记录合并成一条，
// 任何有信息量的值都不丢——有分歧就保留首见值并把其余记入 alternates。
//
// 核心不变量：歧义靠“保留”消解，绝不靠“选择并丢弃”。
package merge

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/takeout"
)

// AlternatesKey 是合并结果里 alternates 注记的保留键：
// merged["__alternates"] = map[字段名][]被让位的值。
// 放在独立键下，主字段保持 Takeout 原始形状，外部执行器照常解析。
const AlternatesKey = "__alternates"

// FieldConflict 记录一次字段级分歧（首见值胜出，其余进 alternates）。
// 它是报告数据，不是错误。
type FieldConflict struct {
	Field  string
	Kept   any
	Others []any
}

// 这些字段有专门的聚合规则（还原自真实导出的观测语义），
// 其余字段一律走“首见值 + alternates”的通用规则。
const (
	fieldImageViews   = "imageViews"
	fieldCreationTime = "creationTime"
	fieldURL          = "url"
	fieldPeople       = "people"
	fieldPhotoTaken   = "photoTakenTime"
)

// Records 合并一个内容簇（指纹一致的成员）的全部记录。
// 输入顺序即“首见”顺序；输入记录只读，结果是新 Record。
//
// 专门规则：
// - imageViews：数值求和（按 Takeout 习惯存成字符串）
// - creationTime：取最早时间戳的那条记录的整个子对象
// - url：取 imageViews 最大的那条记录的值（并列取先见）
// - people：按 name 去重取并集，按 name 排序
// - photoTakenTime：相差 ~1h（夏令时）或 7-8h（UTC/太平洋时区）视为
//   时区伪差，保留较大的；其他分歧走通用 alternates 规则
func Records(recs []takeout.Record) (takeout.Record, []FieldConflict) {
	if len(recs) == 0 {
		return takeout.Record{}, nil
	}
	if len(recs) == 1 {
		return recs[0].Clone(), nil
	}

	merged := recs[0].Clone()
	var conflicts []FieldConflict
	alternates := map[string][]any{}

	applyImageViews(merged, recs)
	applyCreationTime(merged, recs)
	applyURL(merged, recs)

	for _, other := range recs[1:] {
		for _, k := range sortedKeys(merged, other) {
			switch k {
			case fieldImageViews, fieldCreationTime, fieldURL:
				continue // 已在预处理聚合
			}

			v1, ok1 := merged[k]
			v2, ok2 := other[k]
			switch {
			case !ok2:
				continue
			case !ok1 || isEmpty(v1):
				if !isEmpty(v2) {
					merged[k] = v2
				}
				continue
			case isEmpty(v2), reflect.DeepEqual(v1, v2):
				continue
			}

			// 两边都有非空值且不等：先试字段专属规则。
			switch k {
			case fieldPeople:
				merged[k] = unionPeople(v1, v2)
				continue
			case fieldPhotoTaken:
				if v, ok := reconcileTakenTime(v1, v2); ok {
					merged[k] = v
					continue
				}
			default:
				if m1, ok := v1.(map[string]any); ok {
					if m2, ok := v2.(map[string]any); ok {
						if u, ok := unionMaps(m1, m2); ok {
							merged[k] = u
							continue
						}
					}
				}
			}

			// 通用规则：首见值保留，让位值进 alternates（绝不丢）。
			if !containsValue(alternates[k], v2) {
				alternates[k] = append(alternates[k], v2)
				conflicts = append(conflicts, FieldConflict{Field: k, Kept: v1, Others: []any{v2}})
			}
		}
	}

	if len(alternates) > 0 {
		merged[AlternatesKey] = alternates
	}
	return merged, conflicts
}

func applyImageViews(merged takeout.Record, recs []takeout.Record) {
	total := 0
	present := false
	for _, r := range recs {
		if s, ok := r[fieldImageViews].(string); ok {
			present = true
			if n, err := strconv.Atoi(s); err == nil {
				total += n
			}
		}
	}
	if present {
		merged[fieldImageViews] = strconv.Itoa(total)
	}
}

func applyCreationTime(merged takeout.Record, recs []takeout.Record) {
	bestTS := int64(0)
	var best any
	for _, r := range recs {
		ts, ok := r.Timestamp(fieldCreationTime)
		if !ok {
			continue
		}
		if best == nil || ts < bestTS {
			bestTS = ts
			best = r[fieldCreationTime]
		}
	}
	if best != nil {
		merged[fieldCreationTime] = best
	}
}

func applyURL(merged takeout.Record, recs []takeout.Record) {
	bestViews := -1
	var best any
	for _, r := range recs {
		u, ok := r[fieldURL]
		if !ok || isEmpty(u) {
			continue
		}
		views := 0
		if s, ok := r[fieldImageViews].(string); ok {
			views, _ = strconv.Atoi(s)
		}
		if views > bestViews {
			bestViews = views
			best = u
		}
	}
	if best != nil {
		merged[fieldURL] = best
	}
}

// reconcileTakenTime 处理已知的时区伪差：~1h（夏令时）或 7-8h（UTC vs PT）。
// 命中时保留较大的时间戳（UTC 侧）；否则交回通用规则。
func reconcileTakenTime(v1, v2 any) (any, bool) {
	ts1, ok1 := tsOf(v1)
	ts2, ok2 := tsOf(v2)
	if !ok1 || !ok2 {
		return nil, false
	}
	diff := ts1 - ts2
	if diff < 0 {
		diff = -diff
	}
	h := float64(diff) / 3600.0
	if (h >= 0.9 && h <= 1.1) || (h >= 6.9 && h <= 8.1) {
		if ts2 > ts1 {
			return v2, true
		}
		return v1, true
	}
	return nil, false
}

func tsOf(v any) (int64, bool) {
	sub, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	switch t := sub["timestamp"].(type) {
	case string:
		ts, err := strconv.ParseInt(t, 10, 64)
		return ts, err == nil
	case float64:
		return int64(t), true
	}
	return 0, false
}

// unionPeople 对 people 列表按 name 取并集（排序保证确定性）。
func unionPeople(v1, v2 any) []any {
	names := map[string]struct{}{}
	collect := func(v any) {
		list, ok := v.([]any)
		if !ok {
			return
		}
		for _, p := range list {
			if m, ok := p.(map[string]any); ok {
				if n, ok := m["name"].(string); ok && n != "" {
					names[n] = struct{}{}
				}
			}
		}
	}
	collect(v1)
	collect(v2)

	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	out := make([]any, 0, len(sorted))
	for _, n := range sorted {
		out = append(out, map[string]any{"name": n})
	}
	return out
}

// unionMaps 按键取并集；嵌套 map 递归合并。任何标量分歧返回 ok=false，
// 由调用侧落回 alternates 规则（整体保留，不强行缝合）。
func unionMaps(m1, m2 map[string]any) (map[string]any, bool) {
	out := make(map[string]any, len(m1)+len(m2))
	for k, v := range m1 {
		out[k] = v
	}
	for k, v2 := range m2 {
		v1, ok := out[k]
		if !ok {
			out[k] = v2
			continue
		}
		if reflect.DeepEqual(v1, v2) {
			continue
		}
		n1, ok1 := v1.(map[string]any)
		n2, ok2 := v2.(map[string]any)
		if !ok1 || !ok2 {
			return nil, false
		}
		u, ok := unionMaps(n1, n2)
		if !ok {
			return nil, false
		}
		out[k] = u
	}
	return out, true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func containsValue(list []any, v any) bool {
	for _, x := range list {
		if reflect.DeepEqual(x, v) {
			return true
		}
	}
	return false
}

// sortedKeys 返回两条记录键的并集（字典序），保证合并遍历顺序确定。
func sortedKeys(a, b takeout.Record) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}
	delete(set, AlternatesKey)
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
