// Package run 把 scan → pair → resolve → plan → move 串成一次完整执行，
// 并产出对外稳定的 RunReport。
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/app"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/app/planner"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/config"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/infra/fingerprint"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/mover"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/pair"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/plan"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/scan"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级记录（单条失败不影响其他）；
// 只有环境级失败（扫描不到、工件写不出）才提前收尾。
//
// dry-run 与 apply 都会把 file_list/pairs/move_plan 工件写进工作目录——
// 计划本身就是 dry-run 的交付物；apply 只是多走执行器。
func Execute(ctx context.Context, eff config.EffectiveConfig, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     make([]domain.ReportItem, 0, 128),
	}

	// 扫描。输出目录必须排除：apply 过的文件不能在下一轮被当作输入重新规划。
	excludes := append(append([]string(nil), eff.ExcludeDirs...), eff.OutputDir)
	scanStarted := time.Now()
	files, err := scan.Scan(eff.Path, eff.WorkDir, excludes, eff.IgnoredExts)
	if err != nil {
		return abort(rr, domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err))
	}
	rr.Summary.MediaScanned = len(files.Media)
	rr.Summary.SidecarsScanned = len(files.Sidecars)
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"media":        len(files.Media),
			"sidecars":     len(files.Sidecars),
			"ignored":      files.IgnoredCount,
			"unknown_exts": len(files.UnknownExts),
		}, time.Since(scanStarted))
	}
	if err := ctx.Err(); err != nil {
		return abort(rr, domain.ErrCodeIOFailed, err.Error())
	}

	// 配对
	pairStarted := time.Now()
	paired := pair.Resolve(files.Media, files.Sidecars)
	rr.Summary.Paired = len(paired.Pairs)
	for _, u := range paired.Unmatched {
		rr.Items = append(rr.Items, app.UnmatchedItem(u))
	}
	for _, sc := range paired.Orphans {
		rr.Items = append(rr.Items, app.OrphanItem(sc))
	}
	if obs != nil {
		obs.OnPhaseDone("pair", map[string]any{
			"pairs":     len(paired.Pairs),
			"unmatched": len(paired.Unmatched),
			"orphans":   len(paired.Orphans),
		}, time.Since(pairStarted))
	}

	// 日期解析
	resolveStarted := time.Now()
	resolved := app.ResolvePairs(paired.Pairs, eff.DateFields)
	rr.Items = append(rr.Items, resolved.Items...)
	if obs != nil {
		obs.OnPhaseDone("resolve", map[string]any{
			"resolved": len(resolved.Resolved),
		}, time.Since(resolveStarted))
	}
	if err := ctx.Err(); err != nil {
		return abort(rr, domain.ErrCodeIOFailed, err.Error())
	}

	// 指纹：只算目标碰撞涉及的文件（惰性原则），缓存跨 run 复用。
	groups := planner.Group(resolved.Resolved)
	collisions := planner.CollisionSources(groups)

	fpStarted := time.Now()
	store, err := fingerprint.Open(eff.WorkDir, false)
	if err != nil {
		return abort(rr, domain.ErrCodeIOFailed, fmt.Sprintf("打开指纹缓存失败：%v", err))
	}
	sums, err := store.Compute(collisions, eff.Concurrency)
	if err != nil {
		return abort(rr, domain.ErrCodeIOFailed, fmt.Sprintf("指纹计算失败：%v", err))
	}
	if err := store.Save(); err != nil {
		return abort(rr, domain.ErrCodeIOFailed, fmt.Sprintf("保存指纹缓存失败：%v", err))
	}
	if obs != nil {
		obs.OnPhaseDone("fingerprint", map[string]any{
			"files":   len(collisions),
			"workers": eff.Concurrency,
		}, time.Since(fpStarted))
	}

	// 计划合成
	planStarted := time.Now()
	planRes := planner.BuildPlan(groups, sums, resolved.Records, eff.DateFields)
	rr.Items = append(rr.Items, planRes.Items...)
	rr.Items = append(rr.Items, planner.VerifyCrossDuplicates(planRes.Entries, sums)...)
	rr.Summary.Planned = len(planRes.Entries)
	rr.Summary.MergedDuplicates = planRes.MergedDuplicates

	if err := writeArtifacts(eff.WorkDir, files, paired.Pairs, planRes.Entries); err != nil {
		return abort(rr, domain.ErrCodeIOFailed, fmt.Sprintf("写工件失败：%v", err))
	}
	if obs != nil {
		obs.OnPhaseDone("plan", map[string]any{
			"entries": len(planRes.Entries),
			"merged":  planRes.MergedDuplicates,
		}, time.Since(planStarted))
	}
	if err := ctx.Err(); err != nil {
		return abort(rr, domain.ErrCodeIOFailed, err.Error())
	}

	// 执行（dry-run 只点数）
	moveStarted := time.Now()
	moveRes := mover.Run(planRes.Entries, mover.Options{OutputDir: eff.OutputDir, Apply: eff.Apply})
	rr.Items = append(rr.Items, moveRes.Items...)
	if obs != nil {
		obs.OnPhaseDone("move", map[string]any{
			"moved":   moveRes.Moved,
			"skipped": moveRes.Skipped,
			"apply":   eff.Apply,
		}, time.Since(moveStarted))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func writeArtifacts(workDir string, files scan.Result, pairs []domain.Pair, entries []domain.MovePlanEntry) error {
	fl := plan.FileList{
		Media: make([]string, 0, len(files.Media)),
		JSON:  make([]string, 0, len(files.Sidecars)),
	}
	for _, m := range files.Media {
		fl.Media = append(fl.Media, m.AbsPath)
	}
	for _, sc := range files.Sidecars {
		fl.JSON = append(fl.JSON, sc.AbsPath)
	}
	if err := plan.WriteFileList(workDir, fl); err != nil {
		return err
	}
	if err := plan.WritePairs(workDir, pairs); err != nil {
		return err
	}
	return plan.WriteMovePlan(workDir, entries)
}

// abort 以一条合成 failed 项收尾（环境级失败，无法继续产出计划）。
func abort(rr domain.RunReport, code, msg string) domain.RunReport {
	rr.Items = append(rr.Items, domain.ReportItem{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	})
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
