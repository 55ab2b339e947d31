package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/app"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/app/planner"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/app/run"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/config"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/infra/fingerprint"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/mover"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/pair"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/plan"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/scan"
)

// stage 把“配置发现 + 工作目录锁 + 报告收尾”样板从各子命令里抽出来。
func stage(ctx *commandContext, body func(eff config.EffectiveConfig, rr *domain.RunReport) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		eff, err := ctx.effective(cmd, args)
		if err != nil {
			return emitReport(reportForConfigError(err))
		}

		unlock, err := lockWorkDir(eff.WorkDir)
		if err != nil {
			return err
		}
		defer unlock()

		rr := newStageReport(eff)
		if err := body(eff, &rr); err != nil {
			rr.Items = append(rr.Items, domain.ReportItem{
				Status:    domain.StatusFailed,
				ErrorCode: domain.ErrCodeIOFailed,
				ErrorMsg:  err.Error(),
			})
		}
		return finish(rr)
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [path]",
		Short: "扫描导出目录，产出 file_list.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: stage(ctx, func(eff config.EffectiveConfig, rr *domain.RunReport) error {
			files, err := scan.Scan(eff.Path, eff.WorkDir, excludesFor(eff), eff.IgnoredExts)
			if err != nil {
				return fmt.Errorf("扫描失败：%w", err)
			}
			rr.Summary.MediaScanned = len(files.Media)
			rr.Summary.SidecarsScanned = len(files.Sidecars)

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
			return plan.WriteFileList(eff.WorkDir, fl)
		}),
	}
}

func newPairCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pair [path]",
		Short: "按目录内候选匹配边车，产出 pairs.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: stage(ctx, func(eff config.EffectiveConfig, rr *domain.RunReport) error {
			fl, err := plan.ReadFileList(eff.WorkDir)
			if err != nil {
				return err
			}
			media, err := scan.DescribeMedia(eff.Path, fl.Media)
			if err != nil {
				return err
			}
			res := pair.Resolve(media, scan.DescribeSidecars(fl.JSON))

			rr.Summary.MediaScanned = len(media)
			rr.Summary.SidecarsScanned = len(fl.JSON)
			rr.Summary.Paired = len(res.Pairs)
			for _, u := range res.Unmatched {
				rr.Items = append(rr.Items, app.UnmatchedItem(u))
			}
			for _, sc := range res.Orphans {
				rr.Items = append(rr.Items, app.OrphanItem(sc))
			}
			return plan.WritePairs(eff.WorkDir, res.Pairs)
		}),
	}
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [path]",
		Short: "解析日期、去重合并，产出 move_plan.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: stage(ctx, func(eff config.EffectiveConfig, rr *domain.RunReport) error {
			pairs, err := readPairs(eff)
			if err != nil {
				return err
			}
			rr.Summary.Paired = len(pairs)

			resolved := app.ResolvePairs(pairs, eff.DateFields)
			rr.Items = append(rr.Items, resolved.Items...)

			groups := planner.Group(resolved.Resolved)
			store, err := fingerprint.Open(eff.WorkDir, false)
			if err != nil {
				return fmt.Errorf("打开指纹缓存失败：%w", err)
			}
			sums, err := store.Compute(planner.CollisionSources(groups), eff.Concurrency)
			if err != nil {
				return fmt.Errorf("指纹计算失败：%w", err)
			}
			if err := store.Save(); err != nil {
				return fmt.Errorf("保存指纹缓存失败：%w", err)
			}

			planRes := planner.BuildPlan(groups, sums, resolved.Records, eff.DateFields)
			rr.Items = append(rr.Items, planRes.Items...)
			rr.Items = append(rr.Items, planner.VerifyCrossDuplicates(planRes.Entries, sums)...)
			rr.Summary.Planned = len(planRes.Entries)
			rr.Summary.MergedDuplicates = planRes.MergedDuplicates

			return plan.WriteMovePlan(eff.WorkDir, planRes.Entries)
		}),
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move [path]",
		Short: "执行 move_plan.json（默认 dry-run，--apply 才落盘）",
		Args:  cobra.MaximumNArgs(1),
		RunE: stage(ctx, func(eff config.EffectiveConfig, rr *domain.RunReport) error {
			entries, err := plan.ReadMovePlan(eff.WorkDir)
			if err != nil {
				return err
			}
			rr.Summary.Planned = len(entries)
			res := mover.Run(entries, mover.Options{OutputDir: eff.OutputDir, Apply: eff.Apply})
			rr.Items = append(rr.Items, res.Items...)
			return nil
		}),
	}
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run [path]",
		Short: "scan→pair→plan→move 一次跑完（默认 dry-run）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := ctx.effective(cmd, args)
			if err != nil {
				return emitReport(reportForConfigError(err))
			}

			unlock, err := lockWorkDir(eff.WorkDir)
			if err != nil {
				return err
			}
			defer unlock()

			progressW, interactive := pickProgressWriter()
			var obs run.Observer
			if interactive {
				obs = newProgressUI(progressW)
			}

			rr := run.Execute(context.Background(), eff, obs)
			return emitReport(rr)
		},
	}
}

// excludesFor 给扫描追加固定排除：输出目录不是输入。
func excludesFor(eff config.EffectiveConfig) []string {
	return append(append([]string(nil), eff.ExcludeDirs...), eff.OutputDir)
}

// readPairs 把 pairs.json 还原为 Pair 列表，顺序跟随 file_list（即扫描序）。
func readPairs(eff config.EffectiveConfig) ([]domain.Pair, error) {
	fl, err := plan.ReadFileList(eff.WorkDir)
	if err != nil {
		return nil, err
	}
	m, err := plan.ReadPairs(eff.WorkDir)
	if err != nil {
		return nil, err
	}
	media, err := scan.DescribeMedia(eff.Path, fl.Media)
	if err != nil {
		return nil, err
	}

	pairs := make([]domain.Pair, 0, len(m))
	for _, mf := range media {
		scPath, ok := m[mf.AbsPath]
		if !ok {
			continue // unmatched，已在 pair 阶段上报
		}
		scs := scan.DescribeSidecars([]string{scPath})
		pairs = append(pairs, domain.Pair{Media: mf, Sidecar: scs[0]})
	}
	return pairs, nil
}
