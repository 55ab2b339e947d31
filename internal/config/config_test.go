package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, FileName)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// CLI 给 path 且无配置文件：全部走默认值。
func TestLoadEffectiveCLIPathNoConfig(t *testing.T) {
	root := t.TempDir()
	ec, err := LoadEffective(root, CLIArgs{Path: root})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Path != root {
		t.Fatalf("path = %q", ec.Path)
	}
	if ec.OutputDir != filepath.Join(root, DefaultOutputName) {
		t.Fatalf("output_dir = %q", ec.OutputDir)
	}
	if ec.WorkDir != filepath.Join(root, DefaultWorkName) {
		t.Fatalf("work_dir = %q", ec.WorkDir)
	}
	if ec.Apply {
		t.Fatal("apply 默认必须是 false（dry-run）")
	}
	if ec.Concurrency != DefaultConcurrency {
		t.Fatalf("concurrency = %d", ec.Concurrency)
	}
	if len(ec.DateFields) != 2 || ec.DateFields[0] != "photo_taken_time" {
		t.Fatalf("date_fields = %v", ec.DateFields)
	}
}

// 无参运行必须有 <cwd>/gpth.toml 且含 path。
func TestLoadEffectiveCwdDiscovery(t *testing.T) {
	cwd := t.TempDir()

	if _, err := LoadEffective(cwd, CLIArgs{}); Code(err) != ErrCodeNotFound {
		t.Fatalf("err = %v", err)
	}

	writeConfig(t, cwd, `output_dir = "/out"`)
	if _, err := LoadEffective(cwd, CLIArgs{}); Code(err) != ErrCodeMissingPath {
		t.Fatalf("err = %v", err)
	}

	writeConfig(t, cwd, "path = \"export\"\noutput_dir = \"/out\"\n")
	ec, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Path != filepath.Join(cwd, "export") {
		t.Fatalf("path = %q", ec.Path)
	}
	if ec.OutputDir != "/out" {
		t.Fatalf("output_dir = %q", ec.OutputDir)
	}
}

// --config 指定的文件必须存在。
func TestLoadEffectiveExplicitConfig(t *testing.T) {
	cwd := t.TempDir()
	if _, err := LoadEffective(cwd, CLIArgs{ConfigFile: filepath.Join(cwd, "nope.toml")}); Code(err) != ErrCodeNotFound {
		t.Fatalf("err = %v", err)
	}

	p := filepath.Join(cwd, "custom.toml")
	if err := os.WriteFile(p, []byte("path = \"/export\"\nconcurrency = 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ec, err := LoadEffective(cwd, CLIArgs{ConfigFile: p})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Path != "/export" || ec.Concurrency != 8 {
		t.Fatalf("ec = %+v", ec)
	}
}

// CLI --apply=false 必须能覆盖 config.apply=true。
func TestLoadEffectiveApplyPriority(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "apply = true\n")

	ec, err := LoadEffective(root, CLIArgs{Path: root})
	if err != nil {
		t.Fatal(err)
	}
	if !ec.Apply {
		t.Fatal("config.apply=true 未生效")
	}

	ec, err = LoadEffective(root, CLIArgs{Path: root, Apply: false, ApplySet: true})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Apply {
		t.Fatal("--apply=false 未能覆盖 config.apply=true")
	}
}

// concurrency 截断到 [1, 32]。
func TestLoadEffectiveConcurrencyClamp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "concurrency = 100\n")
	ec, err := LoadEffective(root, CLIArgs{Path: root})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Concurrency != 32 {
		t.Fatalf("concurrency = %d", ec.Concurrency)
	}

	writeConfig(t, root, "concurrency = -3\n")
	ec, err = LoadEffective(root, CLIArgs{Path: root})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Concurrency != 1 {
		t.Fatalf("concurrency = %d", ec.Concurrency)
	}
}

// date_fields 非法值是结构化错误；合法值原样生效。
func TestLoadEffectiveDateFields(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "date_fields = [\"exif\"]\n")
	if _, err := LoadEffective(root, CLIArgs{Path: root}); Code(err) != ErrCodeInvalid {
		t.Fatalf("err = %v", err)
	}

	writeConfig(t, root, "date_fields = [\"photo_taken_time\", \"file_mtime\"]\n")
	ec, err := LoadEffective(root, CLIArgs{Path: root})
	if err != nil {
		t.Fatal(err)
	}
	if len(ec.DateFields) != 2 || ec.DateFields[1] != "file_mtime" {
		t.Fatalf("date_fields = %v", ec.DateFields)
	}
}

// ignored_extensions 规范化：小写、补点、去空白。
func TestLoadEffectiveIgnoredExts(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "ignored_extensions = [\"HTML\", \".db\", \" ini \"]\n")
	ec, err := LoadEffective(root, CLIArgs{Path: root})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{".html", ".db", ".ini"}
	if len(ec.IgnoredExts) != len(want) {
		t.Fatalf("ignored = %v", ec.IgnoredExts)
	}
	for i := range want {
		if ec.IgnoredExts[i] != want[i] {
			t.Fatalf("ignored = %v", ec.IgnoredExts)
		}
	}
}

// 坏 TOML 是结构化错误。
func TestLoadEffectiveBadTOML(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "path = [broken\n")
	if _, err := LoadEffective(root, CLIArgs{Path: root}); Code(err) != ErrCodeInvalid {
		t.Fatalf("err = %v", err)
	}
}
