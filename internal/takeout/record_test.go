package takeout

import (
	"testing"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

func TestParse_Object(t *testing.T) {
	rec, err := Parse([]byte(`{"title":"IMG_0001.jpg","photoTakenTime":{"timestamp":"1688888888"}}`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec["title"] != "IMG_0001.jpg" {
		t.Fatalf("title 丢失：%v", rec)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte(`[1,2,3]`)); err == nil {
		t.Fatalf("非对象必须报错")
	}
	if _, err := Parse([]byte(`{broken`)); err == nil {
		t.Fatalf("坏 JSON 必须报错")
	}
}

func TestTimestamp_StringAndNumber(t *testing.T) {
	rec := Record{
		"photoTakenTime": map[string]any{"timestamp": "1688888888"},
		"creationTime":   map[string]any{"timestamp": float64(1600000000)},
		"badTime":        map[string]any{"timestamp": "not-a-number"},
	}
	if ts, ok := rec.Timestamp("photoTakenTime"); !ok || ts != 1688888888 {
		t.Fatalf("字符串时间戳解析失败：%d %v", ts, ok)
	}
	if ts, ok := rec.Timestamp("creationTime"); !ok || ts != 1600000000 {
		t.Fatalf("数字时间戳解析失败：%d %v", ts, ok)
	}
	if _, ok := rec.Timestamp("badTime"); ok {
		t.Fatalf("坏时间戳不允许解析成功")
	}
	if _, ok := rec.Timestamp("absent"); ok {
		t.Fatalf("缺失字段不允许解析成功")
	}
}

func TestResolveDate_FallbackOrder(t *testing.T) {
	rec := Record{"creationTime": map[string]any{"timestamp": "1600000000"}}

	// 主字段缺失 -> 退到次字段，而不是 unknown。
	if ts := ResolveDate(rec, DefaultDatePolicy(), 0); ts != 1600000000 {
		t.Fatalf("期望次字段值 1600000000，实际 %d", ts)
	}

	// 两个都缺失 -> unknown 哨兵。
	if ts := ResolveDate(Record{}, DefaultDatePolicy(), 123); ts != domain.TSUnknown {
		t.Fatalf("期望 TSUnknown，实际 %d（mtime 不在默认策略里）", ts)
	}

	// 操作者显式启用 file_mtime 后才允许回退到文件系统时间。
	policy := []string{DatePhotoTaken, DateFileMtime}
	if ts := ResolveDate(Record{}, policy, 123); ts != 123 {
		t.Fatalf("期望 mtime=123，实际 %d", ts)
	}
}

func TestValidateDatePolicy(t *testing.T) {
	if err := ValidateDatePolicy(DefaultDatePolicy()); err != nil {
		t.Fatalf("默认策略必须合法：%v", err)
	}
	if err := ValidateDatePolicy(nil); err == nil {
		t.Fatalf("空策略必须报错")
	}
	if err := ValidateDatePolicy([]string{"exif"}); err == nil {
		t.Fatalf("未知值必须报错")
	}
}

func TestCleanup(t *testing.T) {
	rec := Record{
		"description": "",
		"geoData": map[string]any{
			"latitude": float64(0), "longitude": float64(0), "altitude": float64(0),
			"latitudeSpan": float64(0), "longitudeSpan": float64(0),
		},
		"geoDataExif": map[string]any{"latitude": 47.6, "longitude": -122.3},
		"title":       "x.jpg",
	}
	Cleanup(rec)
	if _, ok := rec["description"]; ok {
		t.Fatalf("空 description 必须去掉")
	}
	if _, ok := rec["geoData"]; ok {
		t.Fatalf("全零 geoData 必须去掉")
	}
	if _, ok := rec["geoDataExif"]; !ok {
		t.Fatalf("非零 geoDataExif 必须保留")
	}
}

func TestClone_Isolation(t *testing.T) {
	rec := Record{"photoTakenTime": map[string]any{"timestamp": "1"}}
	cp := rec.Clone()
	cp["photoTakenTime"].(map[string]any)["timestamp"] = "2"
	if rec["photoTakenTime"].(map[string]any)["timestamp"] != "1" {
		t.Fatalf("Clone 必须隔离子 map")
	}
}
