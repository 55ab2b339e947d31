// Package pair 实现配对引擎：把每个媒体文件映射到它唯一的元数据边车。
//
// 约束：要么得到唯一边车，要么失败；宁可 unmatched/ambiguous，也不允许配错。
// 失败从不被伪造成配对：它们作为独立的报告类别向上传递，不进入后续阶段。
package pair

import (
	"sort"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/sidecar"
)

// Index 是 目录 -> (NFC 规范化边车名 -> SidecarFile) 的查找表。
// 候选匹配被限制在媒体文件所在目录内。
type Index map[string]map[string]domain.SidecarFile

// BuildIndex 从扫描结果构建目录索引。重名（规范化后）以先扫描到的为准，
// 扫描结果已按路径排序，因此构建是确定的。
func BuildIndex(sidecars []domain.SidecarFile) Index {
	idx := make(Index, 64)
	for _, sc := range sidecars {
		dir := idx[sc.Dir]
		if dir == nil {
			dir = make(map[string]domain.SidecarFile, 8)
			idx[sc.Dir] = dir
		}
		key := sidecar.Normalize(sc.Name)
		if _, ok := dir[key]; !ok {
			dir[key] = sc
		}
	}
	return idx
}

// Result 是配对引擎的完整输出。
// 不变量（totality）：每个输入媒体文件恰好出现在 Pairs/Unmatched 之一。
type Result struct {
	Pairs     []domain.Pair
	Unmatched []domain.Unmatched
	Orphans   []domain.SidecarFile // 从未被任何媒体选中的边车（仅供报告）
}

// Resolve 为每个媒体文件在其目录内挑选最高优先级的唯一边车。
//
// 同一 Rank 命中多个时的决胜顺序：
//  1. 完整文件名前缀相等（边车名以 "<媒体全名>." 开头）
//  2. 与媒体名长度差最小
//  3. 仍然并列 -> ambiguous（绝不靠字典序硬选一个；候选列表按字典序上报）
//
// 一个边车允许被多个媒体文件选中：Takeout 对同名重复组与编辑副本
// 共用一个边车，这是导出格式的既有约定。
func Resolve(media []domain.MediaFile, sidecars []domain.SidecarFile) Result {
	idx := BuildIndex(sidecars)
	used := make(map[string]struct{}, len(sidecars))

	res := Result{
		Pairs:     make([]domain.Pair, 0, len(media)),
		Unmatched: make([]domain.Unmatched, 0, 16),
	}

	for _, m := range media {
		sc, un := resolveOne(m, idx[m.Dir])
		if un != nil {
			res.Unmatched = append(res.Unmatched, *un)
			continue
		}
		used[sc.AbsPath] = struct{}{}
		res.Pairs = append(res.Pairs, domain.Pair{Media: m, Sidecar: sc})
	}

	for _, sc := range sidecars {
		if _, ok := used[sc.AbsPath]; !ok {
			res.Orphans = append(res.Orphans, sc)
		}
	}
	return res
}

func resolveOne(m domain.MediaFile, dir map[string]domain.SidecarFile) (domain.SidecarFile, *domain.Unmatched) {
	if len(dir) == 0 {
		return domain.SidecarFile{}, &domain.Unmatched{Media: m, Kind: "no_match"}
	}

	cands := sidecar.Candidates(m.Name)

	// 候选按 Rank 升序生成；收集第一个有命中的 Rank 的全部命中。
	hitRank := -1
	var hits []domain.SidecarFile
	for _, c := range cands {
		if hitRank >= 0 && c.Rank > hitRank {
			break
		}
		sc, ok := dir[c.Name]
		if !ok {
			continue
		}
		if hitRank < 0 {
			hitRank = c.Rank
		}
		hits = append(hits, sc)
	}

	switch len(hits) {
	case 0:
		return domain.SidecarFile{}, &domain.Unmatched{Media: m, Kind: "no_match"}
	case 1:
		return hits[0], nil
	}

	// 决胜 1：边车名基于完整媒体名（含扩展名）。
	normName := sidecar.Normalize(m.Name)
	exact := hits[:0:0]
	for _, h := range hits {
		if hasDotPrefix(sidecar.Normalize(h.Name), normName) {
			exact = append(exact, h)
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(exact) > 1 {
		hits = exact
	}

	// 决胜 2：与媒体名长度差最小。
	best := -1
	var closest []domain.SidecarFile
	for _, h := range hits {
		d := len(h.Name) - len(m.Name)
		if d < 0 {
			d = -d
		}
		switch {
		case best < 0 || d < best:
			best = d
			closest = []domain.SidecarFile{h}
		case d == best:
			closest = append(closest, h)
		}
	}
	if len(closest) == 1 {
		return closest[0], nil
	}

	// 真正的同级并列：上报 ambiguous，候选按字典序排好保证输出稳定。
	names := make([]string, 0, len(closest))
	for _, h := range closest {
		names = append(names, h.Name)
	}
	sort.Strings(names)
	return domain.SidecarFile{}, &domain.Unmatched{Media: m, Kind: "ambiguous", Candidates: names}
}

func hasDotPrefix(name, base string) bool {
	return len(name) > len(base)+1 && name[:len(base)] == base && name[len(base)] == '.'
}
