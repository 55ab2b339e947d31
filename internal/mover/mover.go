// Package mover 按移动计划执行落盘：改名、校正时间、写合并边车。
// 单条失败降级为报告项，不中断整批；dry-run 只点数不动盘。
package mover

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/infra/fsx"
)

// Options 控制执行方式。
type Options struct {
	OutputDir string // 输出根目录（绝对路径）
	Apply     bool   // false = dry-run，只统计
}

// Result 是执行统计 + 异常项。
type Result struct {
	Moved   int // 实际（或将要）移动的条目数
	Skipped int // 目标已存在而跳过的条目数
	Items   []domain.ReportItem
}

// Run 执行（或演练）移动计划。
//
// 约束：
// - 目标已存在：跳过，不覆盖——重复执行同一计划必须安全
// - 改名跨设备失败（EXDEV）：结构化错误上报为 failed 项，不做隐式拷贝删除
// - 合并边车写到 <dest>.json，原子且不允许覆盖
// - unknown-date 条目不校正 mtime（没有可信时间可设）
func Run(entries []domain.MovePlanEntry, opts Options) Result {
	var res Result
	for _, e := range entries {
		dest := filepath.Join(opts.OutputDir, filepath.FromSlash(e.Dest))

		if _, err := os.Lstat(dest); err == nil {
			res.Skipped++
			continue
		}

		if !opts.Apply {
			res.Moved++
			continue
		}

		if err := moveOne(e, dest); err != nil {
			res.Items = append(res.Items, domain.ReportItem{
				Status:    domain.StatusFailed,
				ErrorCode: domain.ErrCodeIOFailed,
				ErrorMsg:  err.Error(),
				Src:       e.Src,
				Dest:      e.Dest,
			})
			continue
		}
		res.Moved++
	}
	return res
}

func moveOne(e domain.MovePlanEntry, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("建目标目录失败：%w", err)
	}
	if err := fsx.Rename(e.Src, dest); err != nil {
		return err
	}

	if ts := int64(e.Timestamp); ts != domain.TSUnknown && !strings.HasPrefix(e.Dest, "unknown-date/") {
		mt := time.Unix(ts, 0)
		if err := os.Chtimes(dest, mt, mt); err != nil {
			return fmt.Errorf("设置文件时间失败：%w", err)
		}
	}

	return writeSidecar(e, dest)
}

// writeSidecar 写 <dest>.json：合并后的元数据加上 provenance。
// 不允许覆盖——同名边车已存在说明计划或输出目录状态异常，必须暴露。
func writeSidecar(e domain.MovePlanEntry, dest string) error {
	rec := make(map[string]any, len(e.MergedJSON)+1)
	for k, v := range e.MergedJSON {
		rec[k] = v
	}
	rec["provenance"] = e.Provenance

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化合并边车失败：%w", err)
	}
	b = append(b, '\n')

	dir, name := filepath.Split(dest)
	if err := fsx.WriteFileAtomicNoOverwrite(dir, name+".json", b); err != nil {
		return fmt.Errorf("写合并边车失败：%w", err)
	}
	return nil
}
