package domain

import (
	"sort"
	"time"
)

const (
	StatusUnmatched         = "unmatched"
	StatusAmbiguous         = "ambiguous"
	StatusUnknownDate       = "unknown_date"
	StatusRetainedDuplicate = "retained_duplicate"
	StatusFieldConflict     = "field_conflict"
	StatusSidecarInvalid    = "sidecar_invalid"
	StatusOrphanSidecar     = "orphan_sidecar"
	StatusCrossDuplicate    = "cross_duplicate"
	StatusFailed            = "failed"
)

const (
	ErrCodeUnmatchedMedia    = "unmatched_media"
	ErrCodeAmbiguousMatch    = "ambiguous_match"
	ErrCodeUnknownDate       = "unknown_date"
	ErrCodeContentConflict   = "content_conflict"
	ErrCodeFieldConflict     = "field_conflict"
	ErrCodeInputInvalid      = "input_invalid"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeLockHeld          = "lock_held"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
//
// 约定：计划本身写入 move_plan.json；report 只承载排除项与异常事件
// （unmatched/ambiguous/unknown_date/retained_duplicate/field_conflict 等），
// 它们都是“数据结果”而非异常——引擎必须跑完并给出 best-effort 计划。
type RunReport struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ReportItem  `json:"items"`
}

type ReportSummary struct {
	MediaScanned       int `json:"media_scanned"`
	SidecarsScanned    int `json:"sidecars_scanned"`
	Paired             int `json:"paired"`
	Planned            int `json:"planned"`
	MergedDuplicates   int `json:"merged_duplicates"`
	RetainedDuplicates int `json:"retained_duplicates"`
	Unmatched          int `json:"unmatched"`
	Ambiguous          int `json:"ambiguous"`
	UnknownDate        int `json:"unknown_date"`
	FieldConflicts     int `json:"field_conflicts"`
	OrphanSidecars     int `json:"orphan_sidecars"`
	CrossDuplicates    int `json:"cross_duplicates"`
	Failed             int `json:"failed"`
}

// ReportItem 是一条异常/排除记录。字段按需填写：
// - Src：涉及的源路径（相对扫描根；便于用户逐个修复）
// - Dest：涉及的计划目标路径（冲突/重复类条目）
// - Field：字段级冲突的字段名
// - Candidates：ambiguous 的候选列表（已排序）
type ReportItem struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Src        string   `json:"src,omitempty"`
	Dest       string   `json:"dest,omitempty"`
	Field      string   `json:"field,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 (status, src, dest, field) 字典序
// 3) summary 的异常计数由 items 计算得出（扫描/配对计数由上层填写）
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		if a.Dest != b.Dest {
			return a.Dest < b.Dest
		}
		return a.Field < b.Field
	})

	r.Summary.Unmatched = 0
	r.Summary.Ambiguous = 0
	r.Summary.UnknownDate = 0
	r.Summary.RetainedDuplicates = 0
	r.Summary.FieldConflicts = 0
	r.Summary.OrphanSidecars = 0
	r.Summary.CrossDuplicates = 0
	r.Summary.Failed = 0
	for _, it := range r.Items {
		switch it.Status {
		case StatusUnmatched:
			r.Summary.Unmatched++
		case StatusAmbiguous:
			r.Summary.Ambiguous++
		case StatusUnknownDate:
			r.Summary.UnknownDate++
		case StatusRetainedDuplicate:
			r.Summary.RetainedDuplicates++
		case StatusFieldConflict:
			r.Summary.FieldConflicts++
		case StatusOrphanSidecar:
			r.Summary.OrphanSidecars++
		case StatusCrossDuplicate:
			r.Summary.CrossDuplicates++
		case StatusFailed:
			r.Summary.Failed++
		}
	}
}
