package sidecar

import (
	"strings"
	"testing"
)

func names(cands []Candidate) map[string]int {
	m := make(map[string]int, len(cands))
	for _, c := range cands {
		if _, ok := m[c.Name]; !ok {
			m[c.Name] = c.Rank
		}
	}
	return m
}

func TestCandidates_ExactFirst(t *testing.T) {
	cands := Candidates("IMG_0001.jpg")
	if len(cands) == 0 {
		t.Fatalf("候选不能为空")
	}
	if cands[0].Name != "IMG_0001.jpg.json" || cands[0].Rank != 0 {
		t.Fatalf("第一候选必须是完整名 + .json：%+v", cands[0])
	}
	m := names(cands)
	if r, ok := m["IMG_0001.jpg.supplemental-metadata.json"]; !ok || r != 0 {
		t.Fatalf("完整标记必须在家族 0：rank=%d ok=%v", r, ok)
	}
	// 截断标记也必须覆盖到最短 ".supp"。
	if _, ok := m["IMG_0001.jpg.supp.json"]; !ok {
		t.Fatalf("标记截断矩阵不完整")
	}
	// 去扩展名形态排在完整名之后。
	if m["IMG_0001.supplemental-metadata.json"] <= m["IMG_0001.jpg.supplemental-metadata.json"] {
		t.Fatalf("去扩展名形态的 Rank 必须更大")
	}
}

func TestCandidates_BurstSuffix(t *testing.T) {
	m := names(Candidates("PXL_123_CO.jpg"))
	if _, ok := m["PXL_123_C.json"]; !ok {
		t.Fatalf("_CO 连拍名必须生成 _C.json 候选")
	}
}

func TestCandidates_MotionPhotoSibling(t *testing.T) {
	m := names(Candidates("MVIMG_001.MP"))
	if _, ok := m["MVIMG_001.MP.jpg.json"]; !ok {
		t.Fatalf(".MP 文件必须生成 .MP.jpg 兄弟候选")
	}
}

func TestCandidates_BudgetTruncation(t *testing.T) {
	long := strings.Repeat("a", 60) + ".jpg" // 64 字符，超出 46 预算
	m := names(Candidates(long))
	trunc := strings.Repeat("a", 46)
	if _, ok := m[trunc+".json"]; !ok {
		t.Fatalf("超长名必须生成 46 字符截断候选")
	}
}

func TestCandidates_BudgetTruncationRuneSafe(t *testing.T) {
	// 45 个 'a' + 多字节字符跨在预算边界上：截断不允许劈开 rune。
	long := strings.Repeat("a", 45) + "日本語写真" + ".jpg"
	for _, c := range Candidates(long) {
		for _, r := range c.Name {
			if r == '�' {
				t.Fatalf("候选名包含被劈开的 rune：%q", c.Name)
			}
		}
	}
	m := names(Candidates(long))
	want := strings.Repeat("a", 45) + "日" + ".json"
	if _, ok := m[want]; !ok {
		t.Fatalf("rune 安全截断候选缺失：%q", want)
	}
}

func TestCandidates_DupCounterForms(t *testing.T) {
	m := names(Candidates("hemlatha(1).jpg"))
	for _, want := range []string{
		"hemlatha.jpg(1).json",                       // 旧式：计数在 .json 前
		"hemlatha.jpg.supplemental-metadata(1).json", // 新式：计数在标记括号里
		"hemlatha.supplemental-metadata(1).json",     // 不带扩展名的基底
		"hemlatha.jpg.json(1)",                       // 罕见旧格式
	} {
		if _, ok := m[want]; !ok {
			t.Fatalf("缺少重复计数候选：%q", want)
		}
	}
}

func TestCandidates_TildeAndDashCounters(t *testing.T) {
	m := names(Candidates("photo~2.jpg"))
	if _, ok := m["photo.jpg.supplemental-metadata(2).json"]; !ok {
		t.Fatalf("~N 计数未被识别")
	}
	m = names(Candidates("photo - 3.jpg"))
	if _, ok := m["photo.jpg.supplemental-metadata(3).json"]; !ok {
		t.Fatalf("\" - N\" 计数未被识别")
	}
}

func TestCandidates_EditedSuffixRecursive(t *testing.T) {
	m := names(Candidates("image-EFFECTS-edited.jpg"))
	// 每剥一层都要有一轮矩阵：先 -edited，再 -EFFECTS。
	if _, ok := m["image-EFFECTS.jpg.json"]; !ok {
		t.Fatalf("剥掉 -edited 后的中间候选缺失")
	}
	if _, ok := m["image.jpg.json"]; !ok {
		t.Fatalf("剥净后缀的候选缺失")
	}
	if m["image-EFFECTS.jpg.json"] >= m["image.jpg.json"] {
		t.Fatalf("剥离层级必须逐层加深 Rank")
	}
}

func TestCandidates_DeterministicOrder(t *testing.T) {
	a := Candidates("Seattle trip (1).jpg")
	b := Candidates("Seattle trip (1).jpg")
	if len(a) != len(b) {
		t.Fatalf("两次生成长度不同：%d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("候选生成必须确定：第 %d 个 %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNormalize_NFC(t *testing.T) {
	nfd := "Pärchen.jpg" // ä 的分解形态
	nfc := "Pärchen.jpg"
	if Normalize(nfd) != nfc {
		t.Fatalf("NFC 规范化失败：%q", Normalize(nfd))
	}
}
