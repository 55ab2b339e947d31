package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

func repoRootForTest(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("读取 cwd 失败：%v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeMinimalExport(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Takeout", "Photos from 2023")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	sc := `{"title":"a.jpg","photoTakenTime":{"timestamp":"1689415200"}}`
	if err := os.WriteFile(filepath.Join(dir, "a.jpg.json"), []byte(sc), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

// 锁定对外契约：stdout 非 TTY 时只能输出一个 RunReport JSON（进度必须走 stderr 或禁用）。
func TestCLI_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	root := writeMinimalExport(t)

	cmd := exec.Command("go", "run", "./cmd/gpth", "run", root)
	cmd.Dir = repoRootForTest(t)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("命令执行失败：%v\nstderr=%s\nstdout=%s", err, stderr.String(), stdout.String())
	}

	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if rr.Summary.Planned != 1 {
		t.Fatalf("summary = %+v", rr.Summary)
	}
	if strings.Contains(stdout.String(), "配置（生效）") {
		t.Fatalf("stdout 不应包含进度/配置输出：%q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "完成：planned=") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}

// 阶段命令串联：scan → pair → plan → move --apply 与 run --apply 等效。
func TestCLI_StagePipeline(t *testing.T) {
	root := writeMinimalExport(t)
	repo := repoRootForTest(t)

	for _, stage := range [][]string{
		{"run", "./cmd/gpth", "scan", root},
		{"run", "./cmd/gpth", "pair", root},
		{"run", "./cmd/gpth", "plan", root},
		{"run", "./cmd/gpth", "move", "--apply", root},
	} {
		cmd := exec.Command("go", stage...)
		cmd.Dir = repo
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			t.Fatalf("%v 失败：%v\nstderr=%s", stage[2], err, stderr.String())
		}
	}

	dest := filepath.Join(root, "organized", "2023", "07", "a.jpg")
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("阶段管线未产出目标文件：%v", err)
	}
	if _, err := os.Stat(dest + ".json"); err != nil {
		t.Fatalf("阶段管线未产出合并边车：%v", err)
	}
}

// unmatched 存在时退出码为 1，且报告仍然完整输出。
func TestCLI_ExitCodeOnUnmatched(t *testing.T) {
	root := writeMinimalExport(t)
	lone := filepath.Join(root, "Takeout", "Photos from 2023", "lone.jpg")
	if err := os.WriteFile(lone, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command("go", "run", "./cmd/gpth", "run", root)
	cmd.Dir = repoRootForTest(t)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	ee, ok := err.(*exec.ExitError)
	if !ok || ee.ExitCode() != 1 {
		t.Fatalf("期望退出码 1，err=%v", err)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &rr); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v", err)
	}
	if rr.Summary.Unmatched != 1 {
		t.Fatalf("summary = %+v", rr.Summary)
	}
}
