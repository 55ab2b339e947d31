package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/config"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

// errReportHasFailures 表示命令正常完成，但报告里有 unmatched/failed 项。
// main 据此给退出码 1，不再重复打印（报告本身已经输出）。
var errReportHasFailures = errors.New("报告包含未配对或失败项")

// commandContext 持有 CLI 级共享状态（持久化 flag 的落点）。
type commandContext struct {
	configFlag *string
	applyFlag  *bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var applyFlag bool

	ctx := &commandContext{configFlag: &configFlag, applyFlag: &applyFlag}

	rootCmd := &cobra.Command{
		Use:           "gpth",
		Short:         "整理 Google Photos Takeout 导出：配对边车、去重、按日期归档",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "配置文件路径（默认按 gpth.toml 规则发现）")
	rootCmd.PersistentFlags().BoolVar(&applyFlag, "apply", false, "执行移动与落盘（默认 dry-run 只产出计划与报告）")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newPairCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newMoveCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))

	return rootCmd
}

// effective 合并 flag/参数/配置文件为最终配置。
func (c *commandContext) effective(cmd *cobra.Command, args []string) (config.EffectiveConfig, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	return config.LoadEffective(cwd, config.CLIArgs{
		Path:       path,
		ConfigFile: *c.configFlag,
		Apply:      *c.applyFlag,
		ApplySet:   cmd.Flags().Changed("apply"),
	})
}

// lockWorkDir 独占工作目录：工件目录同一时刻只允许一个操作者写。
// 返回的函数用于释放锁。
func lockWorkDir(workDir string) (func(), error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建工作目录失败：%w", err)
	}
	fl := flock.New(filepath.Join(workDir, "gpth.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%s：获取工作目录锁失败：%w", domain.ErrCodeLockHeld, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s：另一个 gpth 正在使用 %q", domain.ErrCodeLockHeld, workDir)
	}
	return func() { _ = fl.Unlock() }, nil
}

func isTTY(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// pickProgressWriter 决定进度输出的去向。
// 进度只在交互终端启用；默认走 stderr，不污染 stdout 的 JSON 契约。
func pickProgressWriter() (io.Writer, bool) {
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

// emitReport 输出 RunReport 并换算退出码。
//
// 契约：stdout 非 TTY 时必须且仅输出一个 RunReport JSON；
// 摘要/条目明细走 stderr 或 TTY 表格。
func emitReport(rr domain.RunReport) error {
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, renderSummaryTable(rr.Summary))
		printProblemItems(os.Stderr, rr)
	} else {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(rr)
		fmt.Fprintf(os.Stderr, "完成：planned=%d merged=%d unmatched=%d failed=%d\n",
			rr.Summary.Planned, rr.Summary.MergedDuplicates, rr.Summary.Unmatched, rr.Summary.Failed)
	}

	if rr.Summary.Failed > 0 || rr.Summary.Unmatched > 0 {
		return errReportHasFailures
	}
	return nil
}

func printProblemItems(w io.Writer, rr domain.RunReport) {
	if rr.Summary.Failed == 0 && rr.Summary.Unmatched == 0 {
		return
	}
	for _, it := range rr.Items {
		if it.Status != domain.StatusFailed && it.Status != domain.StatusUnmatched {
			continue
		}
		key := it.Src
		if key == "" {
			key = "<run>"
		}
		fmt.Fprintf(w, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
	}
}

// reportForConfigError 把配置错误包装成可输出的报告（保持 stdout JSON 契约）。
func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		RunID:      uuid.NewString(),
		DryRun:     true,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ReportItem{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

// newStageReport 初始化一个阶段命令的报告骨架。
func newStageReport(eff config.EffectiveConfig) domain.RunReport {
	return domain.RunReport{
		RunID:     uuid.NewString(),
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		StartedAt: time.Now().UTC(),
		Items:     make([]domain.ReportItem, 0, 16),
	}
}

func finish(rr domain.RunReport) error {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return emitReport(rr)
}
