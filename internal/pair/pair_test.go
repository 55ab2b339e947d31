package pair

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

func media(dir, name string) domain.MediaFile {
	return domain.MediaFile{
		AbsPath: filepath.Join(dir, name),
		Dir:     dir,
		Name:    name,
		Base:    strings.TrimSuffix(name, filepath.Ext(name)),
		Ext:     strings.ToLower(filepath.Ext(name)),
	}
}

func sc(dir, name string) domain.SidecarFile {
	return domain.SidecarFile{AbsPath: filepath.Join(dir, name), Dir: dir, Name: name}
}

func TestResolve_ExactMatch(t *testing.T) {
	dir := "/takeout/Album"
	res := Resolve(
		[]domain.MediaFile{media(dir, "IMG_0001.jpg")},
		[]domain.SidecarFile{sc(dir, "IMG_0001.jpg.supplemental-metadata.json")},
	)
	if len(res.Pairs) != 1 || len(res.Unmatched) != 0 {
		t.Fatalf("期望 1 对 0 unmatched，实际 %d/%d", len(res.Pairs), len(res.Unmatched))
	}
	if res.Pairs[0].Sidecar.Name != "IMG_0001.jpg.supplemental-metadata.json" {
		t.Fatalf("配对结果错误：%q", res.Pairs[0].Sidecar.Name)
	}
	if len(res.Orphans) != 0 {
		t.Fatalf("不期望 orphan：%v", res.Orphans)
	}
}

func TestResolve_SameDirectoryOnly(t *testing.T) {
	res := Resolve(
		[]domain.MediaFile{media("/takeout/A", "x.jpg")},
		[]domain.SidecarFile{sc("/takeout/B", "x.jpg.json")},
	)
	if len(res.Unmatched) != 1 || res.Unmatched[0].Kind != "no_match" {
		t.Fatalf("跨目录不允许匹配：%+v", res.Unmatched)
	}
	if len(res.Orphans) != 1 {
		t.Fatalf("未使用的边车必须上报 orphan")
	}
}

func TestResolve_TruncatedMarker(t *testing.T) {
	dir := "/takeout/Album"
	// 标记被截断到 .supplemental-me：必须仍能唯一配对。
	res := Resolve(
		[]domain.MediaFile{media(dir, "PXL_20230711_123456789.jpg")},
		[]domain.SidecarFile{sc(dir, "PXL_20230711_123456789.jpg.supplemental-me.json")},
	)
	if len(res.Pairs) != 1 {
		t.Fatalf("截断标记未命中：%+v", res.Unmatched)
	}
}

func TestResolve_BudgetTruncatedName(t *testing.T) {
	dir := "/takeout/Album"
	long := strings.Repeat("a", 50) + ".jpg" // 54 字符，超出 46 预算
	trunc := strings.Repeat("a", 46)
	res := Resolve(
		[]domain.MediaFile{media(dir, long)},
		[]domain.SidecarFile{sc(dir, trunc+".json")},
	)
	if len(res.Pairs) != 1 {
		t.Fatalf("预算截断的边车必须命中（relaxed match），实际 unmatched=%+v", res.Unmatched)
	}
}

func TestResolve_DupCounter(t *testing.T) {
	dir := "/takeout/Album"
	res := Resolve(
		[]domain.MediaFile{
			media(dir, "hemlatha.jpg"),
			media(dir, "hemlatha(1).jpg"),
		},
		[]domain.SidecarFile{
			sc(dir, "hemlatha.jpg.supplemental-metadata.json"),
			sc(dir, "hemlatha.supplemental-metadata(1).json"),
		},
	)
	if len(res.Pairs) != 2 {
		t.Fatalf("期望 2 对，实际 %d（unmatched=%+v）", len(res.Pairs), res.Unmatched)
	}
	if res.Pairs[1].Sidecar.Name != "hemlatha.supplemental-metadata(1).json" {
		t.Fatalf("计数副本配错边车：%q", res.Pairs[1].Sidecar.Name)
	}
}

func TestResolve_ExactStemTieBreak(t *testing.T) {
	dir := "/takeout/Album"
	// 两个边车同 Rank 命中：基于完整媒体名的那个必须赢。
	res := Resolve(
		[]domain.MediaFile{media(dir, "x.jpg")},
		[]domain.SidecarFile{
			sc(dir, "x.jpg.json"),
			sc(dir, "x.json"),
		},
	)
	if len(res.Pairs) != 1 {
		t.Fatalf("期望唯一配对，实际 %+v", res)
	}
	if res.Pairs[0].Sidecar.Name != "x.jpg.json" {
		t.Fatalf("决胜必须偏向完整名：%q", res.Pairs[0].Sidecar.Name)
	}
}

func TestResolve_SharedSidecar(t *testing.T) {
	dir := "/takeout/Album"
	// 编辑副本与原件共用边车：允许，一个边车被两个媒体选中。
	res := Resolve(
		[]domain.MediaFile{
			media(dir, "photo.jpg"),
			media(dir, "photo-edited.jpg"),
		},
		[]domain.SidecarFile{sc(dir, "photo.jpg.supplemental-metadata.json")},
	)
	if len(res.Pairs) != 2 {
		t.Fatalf("共享边车必须允许：%+v", res.Unmatched)
	}
	if res.Pairs[0].Sidecar.AbsPath != res.Pairs[1].Sidecar.AbsPath {
		t.Fatalf("两个媒体应指向同一边车")
	}
}

func TestResolve_AmbiguousTie(t *testing.T) {
	dir := "/takeout/Album"
	// 两个边车在同一 Rank 命中、都不基于完整媒体名、长度差相同：
	// 不允许硬选，必须上报 ambiguous。
	res := Resolve(
		[]domain.MediaFile{media(dir, "x(1).jpg")},
		[]domain.SidecarFile{
			sc(dir, "x.jpg.supp(1).json"),
			sc(dir, "x.suppleme(1).json"),
		},
	)
	if len(res.Unmatched) != 1 || res.Unmatched[0].Kind != "ambiguous" {
		t.Fatalf("期望 ambiguous，实际 %+v", res)
	}
	got := res.Unmatched[0].Candidates
	if len(got) != 2 || got[0] != "x.jpg.supp(1).json" || got[1] != "x.suppleme(1).json" {
		t.Fatalf("候选列表必须按字典序：%v", got)
	}
}

func TestResolve_Totality(t *testing.T) {
	dir := "/takeout/Album"
	ms := []domain.MediaFile{
		media(dir, "a.jpg"),
		media(dir, "b.jpg"),
		media(dir, "c.jpg"),
	}
	res := Resolve(ms, []domain.SidecarFile{sc(dir, "a.jpg.json")})
	if len(res.Pairs)+len(res.Unmatched) != len(ms) {
		t.Fatalf("totality 破坏：pairs=%d unmatched=%d 输入=%d",
			len(res.Pairs), len(res.Unmatched), len(ms))
	}
}

func TestResolve_NFCNormalization(t *testing.T) {
	dir := "/takeout/Album"
	// 媒体名是 NFD（macOS 风格），边车名是 NFC：必须配上。
	res := Resolve(
		[]domain.MediaFile{media(dir, "Pärchen.jpg")},
		[]domain.SidecarFile{sc(dir, "Pärchen.jpg.json")},
	)
	if len(res.Pairs) != 1 {
		t.Fatalf("NFC 规范化后必须配对成功：%+v", res.Unmatched)
	}
}
