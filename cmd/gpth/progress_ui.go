package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/app/run"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的阶段进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (只产出计划与报告，不移动文件)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] gpth run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  output: %s\n", eff.OutputDir)
	fmt.Fprintf(p.w, "  work: %s\n", eff.WorkDir)
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  date_fields: %s\n", formatStringListJSON(eff.DateFields))
	fmt.Fprintf(p.w, "  exclude_dirs: %s + 固定排除 output/work 目录\n", formatStringListJSON(eff.ExcludeDirs))
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: media=%d sidecars=%d ignored=%d unknown_exts=%d (%s)\n",
			intField(fields, "media"), intField(fields, "sidecars"),
			intField(fields, "ignored"), intField(fields, "unknown_exts"),
			formatShortDuration(dur))
	case "pair":
		fmt.Fprintf(p.w, "配对: pairs=%d unmatched=%d orphans=%d (%s)\n",
			intField(fields, "pairs"), intField(fields, "unmatched"),
			intField(fields, "orphans"), formatShortDuration(dur))
	case "resolve":
		fmt.Fprintf(p.w, "日期: resolved=%d (%s)\n",
			intField(fields, "resolved"), formatShortDuration(dur))
	case "fingerprint":
		fmt.Fprintf(p.w, "指纹: files=%d workers=%d (%s)\n",
			intField(fields, "files"), intField(fields, "workers"),
			formatShortDuration(dur))
	case "plan":
		fmt.Fprintf(p.w, "规划: entries=%d merged=%d (%s)\n",
			intField(fields, "entries"), intField(fields, "merged"),
			formatShortDuration(dur))
	case "move":
		verb := "演练"
		if b, ok := fields["apply"].(bool); ok && b {
			verb = "移动"
		}
		fmt.Fprintf(p.w, "%s: moved=%d skipped=%d (%s)\n",
			verb, intField(fields, "moved"), intField(fields, "skipped"),
			formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "%s: (%s)\n", name, formatShortDuration(dur))
	}
}

func intField(fields map[string]any, key string) int {
	if v, ok := fields[key].(int); ok {
		return v
	}
	return 0
}

func formatShortDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatStringListJSON(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}
