// Package planner 实现目标规划与计划合成：
// 按 <year>/<month>/<basename> 分组，碰撞组交给保守去重合并，
// 产出全局唯一、顺序确定的移动计划。
package planner

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/merge"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/takeout"
)

// UnknownBucket 是无日期文件的目标桶（代替 year/month 两级）。
const UnknownBucket = "unknown-date"

// DestFor 计算候选目标路径（相对输出根，永远用 '/' 分隔——这是计划文件的
// 对外契约，与平台无关）。时间按 UTC 取年月，保证跨机器重跑结果一致。
func DestFor(ts int64, name string) string {
	if ts == domain.TSUnknown {
		return path.Join(UnknownBucket, name)
	}
	t := time.Unix(ts, 0).UTC()
	return path.Join(fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), name)
}

// Group 把 ResolvedPair 按候选目标路径分组。
//
// - 分组只看计算出的路径，与内容无关；碰撞在合并阶段消解
// - 规划器从不为了避让碰撞而改名——改名会把真正的重复藏起来
// - 组按 Dest 字典序排序；组内成员保持输入（扫描）顺序
func Group(resolved []domain.ResolvedPair) []domain.DestinationGroup {
	index := make(map[string]int, len(resolved))
	groups := make([]domain.DestinationGroup, 0, len(resolved))

	for _, rp := range resolved {
		dest := DestFor(rp.Timestamp, rp.Media.Name)
		if i, ok := index[dest]; ok {
			groups[i].Members = append(groups[i].Members, rp)
			continue
		}
		index[dest] = len(groups)
		groups = append(groups, domain.DestinationGroup{Dest: dest, Members: []domain.ResolvedPair{rp}})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Dest < groups[j].Dest })
	return groups
}

// CollisionSources 返回多成员组涉及的全部媒体文件。
// 指纹只需要对这些文件计算（惰性原则：无碰撞不读内容）。
func CollisionSources(groups []domain.DestinationGroup) []domain.MediaFile {
	var out []domain.MediaFile
	for _, g := range groups {
		if len(g.Members) < 2 {
			continue
		}
		for _, m := range g.Members {
			out = append(out, m.Media)
		}
	}
	return out
}

// Result 是计划合成的完整产物。
type Result struct {
	Entries []domain.MovePlanEntry
	Items   []domain.ReportItem

	MergedDuplicates int // 被合并掉的成员数（同内容副本）
}

// BuildPlan 把分组合成为最终计划。
//
// 保守去重（核心不变量）：
// - 只有内容指纹一致的成员才允许合并成一条 entry
// - 指纹不一致的成员各自保留，目标名加 _1/_2 后缀消歧——
//   绝不为了更干净的布局丢文件
// - 合并时元数据走 merge.Records 的“首见 + alternates”规则，不丢值
//
// sums：媒体绝对路径 -> 指纹，至少覆盖 CollisionSources 的文件。
// records：媒体绝对路径 -> 解析好的边车记录。
// policy：日期回退顺序（合并后的记录重新解析时间戳用）。
func BuildPlan(groups []domain.DestinationGroup, sums map[string]string, records map[string]takeout.Record, policy []string) Result {
	res := Result{Entries: make([]domain.MovePlanEntry, 0, len(groups))}
	used := make(map[string]struct{}, len(groups))

	for _, g := range groups {
		if len(g.Members) == 1 {
			m := g.Members[0]
			rec := takeout.Cleanup(records[m.Media.AbsPath].Clone())
			res.Entries = append(res.Entries, domain.MovePlanEntry{
				Src:        m.Media.AbsPath,
				Dest:       claimDest(g.Dest, used),
				Timestamp:  float64(m.Timestamp),
				Provenance: []string{m.Provenance},
				MergedJSON: rec,
			})
			continue
		}

		// 按指纹聚簇；簇序 = 簇首成员在组内（即扫描序）的先后。
		clusters := clusterByFingerprint(g.Members, sums)

		for idx, cluster := range clusters {
			recs := make([]takeout.Record, 0, len(cluster))
			for _, m := range cluster {
				recs = append(recs, records[m.Media.AbsPath])
			}
			mergedRec, conflicts := merge.Records(recs)

			// 合并后的时间戳可能被时区修正过，重新解析；解析不出就退回簇首。
			ts := takeout.ResolveDate(mergedRec, policy, cluster[0].Media.ModUnix)
			if ts == domain.TSUnknown {
				ts = cluster[0].Timestamp
			}

			// 首簇拿组名；后续簇由分配器自然拿到 _1/_2（组名已被首簇占住）。
			dest := claimDest(g.Dest, used)

			if idx > 0 {
				res.Items = append(res.Items, domain.ReportItem{
					Status:    domain.StatusRetainedDuplicate,
					ErrorCode: domain.ErrCodeContentConflict,
					ErrorMsg:  fmt.Sprintf("目标 %q 上存在内容不同的同名文件；保留为独立条目", g.Dest),
					Src:       cluster[0].Media.RelPath,
					Dest:      dest,
				})
			}
			for _, c := range conflicts {
				res.Items = append(res.Items, domain.ReportItem{
					Status:    domain.StatusFieldConflict,
					ErrorCode: domain.ErrCodeFieldConflict,
					ErrorMsg:  fmt.Sprintf("字段 %q 在合并中有分歧；首见值保留，其余记入 %s", c.Field, merge.AlternatesKey),
					Dest:      dest,
					Field:     c.Field,
				})
			}

			res.Entries = append(res.Entries, domain.MovePlanEntry{
				Src:        cluster[0].Media.AbsPath,
				Dest:       dest,
				Timestamp:  float64(ts),
				Provenance: provenanceUnion(cluster),
				MergedJSON: takeout.Cleanup(mergedRec),
			})
			res.MergedDuplicates += len(cluster) - 1
		}
	}

	// 改名分配可能打乱 Dest 序（a_1.jpg 先于后到的 a_0.jpg 组拿到），
	// 最后统一排序。claimDest 保证 Dest 全局唯一，排序即全序。
	sort.Slice(res.Entries, func(i, j int) bool { return res.Entries[i].Dest < res.Entries[j].Dest })

	return res
}

// VerifyCrossDuplicates 检查“同内容落到不同目标”的情况（保守去重的已知残留）。
// sums 覆盖不到的条目跳过。输出按 Src 排序，保证报告稳定。
func VerifyCrossDuplicates(entries []domain.MovePlanEntry, sums map[string]string) []domain.ReportItem {
	bySum := map[string][]domain.MovePlanEntry{}
	for _, e := range entries {
		if s, ok := sums[e.Src]; ok {
			bySum[s] = append(bySum[s], e)
		}
	}

	var items []domain.ReportItem
	for _, group := range bySum {
		if len(group) < 2 {
			continue
		}
		dests := make([]string, 0, len(group))
		for _, e := range group {
			dests = append(dests, e.Dest)
		}
		sort.Strings(dests)
		items = append(items, domain.ReportItem{
			Status:     domain.StatusCrossDuplicate,
			ErrorCode:  domain.ErrCodeContentConflict,
			ErrorMsg:   "同一内容指纹的文件被计划到多个目标；保守策略保留全部，请人工确认",
			Src:        group[0].Src,
			Candidates: dests,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Src < items[j].Src })
	return items
}

// clusterByFingerprint 按指纹切簇，簇序与成员序都跟随输入顺序（确定性）。
func clusterByFingerprint(members []domain.ResolvedPair, sums map[string]string) [][]domain.ResolvedPair {
	index := make(map[string]int, len(members))
	var clusters [][]domain.ResolvedPair
	for _, m := range members {
		sum := sums[m.Media.AbsPath]
		if i, ok := index[sum]; ok {
			clusters[i] = append(clusters[i], m)
			continue
		}
		index[sum] = len(clusters)
		clusters = append(clusters, []domain.ResolvedPair{m})
	}
	return clusters
}

// provenanceUnion 取簇成员来源标签的并集，保持首见顺序。
func provenanceUnion(cluster []domain.ResolvedPair) []string {
	seen := make(map[string]struct{}, len(cluster))
	out := make([]string, 0, len(cluster))
	for _, m := range cluster {
		if _, ok := seen[m.Provenance]; ok {
			continue
		}
		seen[m.Provenance] = struct{}{}
		out = append(out, m.Provenance)
	}
	return out
}

// renamed 生成带 _N 后缀的消歧名（2023/07/a.jpg, 1 -> 2023/07/a_1.jpg）。
func renamed(dest string, n int) string {
	dir, name := path.Split(dest)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return dir + fmt.Sprintf("%s_%d%s", stem, n, ext)
}

// claimDest 保证目标全局唯一：被占用就继续加后缀，直到找到空位。
// 占用可能来自别的组的消歧名（例如 a.jpg 的第二簇抢了 a_1.jpg）。
func claimDest(dest string, used map[string]struct{}) string {
	cand := dest
	for n := 1; ; n++ {
		if _, ok := used[cand]; !ok {
			used[cand] = struct{}{}
			return cand
		}
		cand = renamed(dest, n)
	}
}
