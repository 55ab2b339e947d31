// Package sidecar 负责“逆向” Takeout 的文件名截断规则：
// 给定一个媒体文件名，生成它的边车（JSON 元数据）可能使用的全部文件名，
// 按可能性从高到低分级（Rank 越小越优先）。
//
// 这里没有错误路径：生成不到匹配是正常结果，由上层归类为 unmatched。
package sidecar

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// supplementalMarker 是 Takeout 给边车追加的固定标记。
// 当“媒体名 + 标记 + .json”超出名字预算时，标记本身会被截断，
// 最短观测到 ".supp"。
const supplementalMarker = "supplemental-metadata"

// nameBudget 是 Takeout 对文件名（不含 ".json"）的字符预算。
// 超长的媒体名会被截断到该长度后再拼边车名。
const nameBudget = 46

// Candidate 是一个候选边车文件名。
// 同一 Rank 表示同一启发式家族；家族内的多重命中由配对引擎决胜。
type Candidate struct {
	Name string
	Rank int
}

// Normalize 把文件名统一为 NFC 形态。
// Takeout 导出与本地文件系统（尤其 macOS 的 NFD）可能用不同的 Unicode 形态
// 表示同一个名字；所有比较都必须在 NFC 下进行。
func Normalize(name string) string {
	return norm.NFC.String(name)
}

// Candidates 生成 mediaName 的候选边车名列表（已 NFC 规范化、已去重）。
//
// 启发式家族按可能性排序（还原自真实导出观测）：
//  0. 完整名 + 标记矩阵（image.jpg -> image.jpg.supplemental-metadata.json 等）
//  1. 连拍尾巴：_CO -> _C
//  2. 去扩展名 + 标记矩阵（image.jpg -> image.supplemental-metadata.json）
//  3. Motion Photo 兄弟名：x.MP -> x.MP.jpg + 矩阵
//  4. 预算截断：名字超过 46 字符时按截断名 + 矩阵
//  5. 重复计数先行匹配：保留 -COLLAGE 之类后缀、只剥计数时的组合
//  6+ 逐层剥离编辑后缀（-edited/-COLLAGE/...），每层一个 Rank
//  最后. 剥完后缀后的重复计数组合（带扩展名与不带扩展名两种基底）
func Candidates(mediaName string) []Candidate {
	name := Normalize(mediaName)
	stem, ext := splitExt(name)

	g := &gen{seen: make(map[string]struct{}, 64)}

	// 家族 0：完整名矩阵。
	g.matrix(name)
	g.next()

	// 家族 1：连拍（burst）尾巴 _CO -> _C。
	if strings.HasSuffix(stem, "_CO") {
		g.add(stem[:len(stem)-2] + "C.json")
	}
	g.next()

	// 家族 2：去扩展名矩阵（某些文件如 "3_11_15 - 1" 依赖该形态）。
	g.matrix(stem)
	g.next()

	// 家族 3：Motion Photo 的兄弟名。
	if strings.EqualFold(ext, ".mp") {
		g.matrix(name + ".jpg")
	}
	g.next()

	// 家族 4：名字预算截断（按 rune 截断，避免劈开多字节字符）。
	if truncated, ok := truncateRunes(name, nameBudget); ok {
		g.matrix(truncated)
	}
	g.next()

	// 剥离重复计数：file(1) / file~1 / file - 1 -> file + 计数。
	cleanStem, dupNumber := stripDupCounter(stem)

	// 家族 5：带计数的“先行”组合——仅当还有编辑后缀待剥时才有意义。
	// 例：IMG-COLLAGE(1).jpg 的边车可能是 IMG-COLLAGE.jpg.supplemental-m(1).json。
	if dupNumber != "" && hasEditSuffix(cleanStem) {
		g.dupCombos(cleanStem+ext, dupNumber)
	}
	g.next()

	// 家族 6+：逐层剥离编辑/拼贴后缀；每剥一层都可能恰好命中。
	for {
		next, changed := stripEditSuffix(cleanStem)
		if !changed {
			break
		}
		cleanStem = next
		g.matrix(cleanStem + ext)
		g.next()
	}

	// 收尾：剥干净之后的重复计数组合。两种基底在同一 Rank——
	// "hemlatha(1).jpg" 的边车是 "hemlatha.supplemental-metadata(1).json"（不带 .jpg），
	// 与带扩展名的形态同样常见，优先级上无法区分，让配对引擎决胜。
	if dupNumber != "" {
		g.dupCombos(cleanStem+ext, dupNumber)
		g.dupCombos(cleanStem, dupNumber)
	}

	return g.out
}

// gen 收集候选并维护去重 + 递增 Rank。
type gen struct {
	out  []Candidate
	seen map[string]struct{}
	rank int
}

func (g *gen) add(name string) {
	if _, ok := g.seen[name]; ok {
		return
	}
	g.seen[name] = struct{}{}
	g.out = append(g.out, Candidate{Name: name, Rank: g.rank})
}

func (g *gen) next() { g.rank++ }

// matrix 生成 base 的标记矩阵：裸 .json + 标记的全部截断形态。
func (g *gen) matrix(base string) {
	g.add(base + ".json")
	for _, m := range markerTruncations() {
		g.add(base + "." + m + ".json")
	}
}

// dupCombos 生成带重复计数 n 的全部已知组合。
func (g *gen) dupCombos(base, n string) {
	g.add(base + "(" + n + ").json")
	for _, m := range markerTruncations() {
		g.add(base + "." + m + "(" + n + ").json")
	}
	g.add(base + ".json(" + n + ")") // 罕见旧格式
}

// markerTruncations 返回标记的全部截断形态（长到短）。
func markerTruncations() []string {
	out := make([]string, 0, len(supplementalMarker)-len("supp")+1)
	for l := len(supplementalMarker); l >= len("supp"); l-- {
		out = append(out, supplementalMarker[:l])
	}
	return out
}

// stripDupCounter 剥离重复计数后缀，返回（干净的 stem，计数字符串）。
// 认识三种形态：file(1)、file~1、file - 1。没有计数时返回原样与空串。
func stripDupCounter(stem string) (string, string) {
	if strings.HasSuffix(stem, ")") {
		if i := strings.LastIndex(stem, "("); i >= 0 {
			n := stem[i+1 : len(stem)-1]
			if isDigits(n) {
				return strings.TrimRight(stem[:i], " "), n
			}
		}
	}
	if i := strings.LastIndex(stem, "~"); i >= 0 {
		n := stem[i+1:]
		if isDigits(n) {
			return strings.TrimRight(stem[:i], " "), n
		}
	}
	if i := strings.LastIndex(stem, " - "); i >= 0 {
		n := stem[i+3:]
		if isDigits(n) {
			return strings.TrimRight(stem[:i], " "), n
		}
	}
	return stem, ""
}

// editSuffixes 是 Takeout 各语言版本的“编辑副本”后缀（小写比较）。
var editSuffixes = []string{"-edited", "-modifié", "-kopio", "-löschen", " copy", "-collage", "-effects"}

func hasEditSuffix(stem string) bool {
	_, ok := stripEditSuffix(stem)
	return ok
}

// stripEditSuffix 剥掉一层编辑后缀；changed=false 表示没有可剥的了。
func stripEditSuffix(stem string) (string, bool) {
	lower := strings.ToLower(stem)
	for _, s := range editSuffixes {
		if strings.HasSuffix(lower, s) {
			return stem[:len(stem)-len(s)], true
		}
	}
	return stem, false
}

// truncateRunes 把 s 截到至多 limit 个 rune；不足 limit 时 ok=false。
func truncateRunes(s string, limit int) (string, bool) {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i], true
		}
		n++
	}
	return s, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil && !strings.ContainsAny(s, "+-")
}

func splitExt(name string) (stem, ext string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
