package domain

// TSUnknown 是“日期无法解析”的哨兵值。
// 未知日期是数据而非错误：必须继续流经后续阶段并落入 unknown-date 桶。
const TSUnknown int64 = -1

// Pair 把一个媒体文件绑定到它唯一的元数据边车。
// 不变量：每个 MediaFile 恰好出现在 {pairs, unmatched, ambiguous} 之一；
// 配对失败必须上报，绝不悄悄丢弃。
type Pair struct {
	Media   MediaFile
	Sidecar SidecarFile
}

// ResolvedPair 是 Pair + 规范时间戳（epoch 秒）+ 来源标签。
type ResolvedPair struct {
	Pair
	Timestamp  int64  // TSUnknown 表示未知
	Provenance string // 媒体文件父目录名
}

// DestinationGroup 是映射到同一候选输出路径的 ResolvedPair 集合。
// 不变量：分组只由计算出的目标路径（year/month/basename）决定，与内容无关；
// 真正的去重/改名发生在 Merge 阶段。
type DestinationGroup struct {
	Dest    string // 相对路径，如 "2023/07/IMG_0001.jpg" 或 "unknown-date/x.jpg"
	Members []ResolvedPair
}

// Unmatched 描述无法唯一配对到边车的媒体文件。
// Kind: "no_match"（没有任何候选）或 "ambiguous"（同级候选多于一个）。
type Unmatched struct {
	Media      MediaFile
	Kind       string
	Candidates []string // 仅 ambiguous 时非空（已按字典序排序，保证稳定）
}
