// Package config 负责 gpth.toml 的发现、解析与 CLI 合并。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/takeout"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 gpth.toml。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// FileName 是配置文件的固定名字。
	FileName = "gpth.toml"
	// DefaultConcurrency 是指纹计算并发的内置默认值。
	DefaultConcurrency = 4
	// DefaultOutputName / DefaultWorkName 是默认输出/工作目录名（相对导出根）。
	DefaultOutputName = "organized"
	DefaultWorkName   = ".gpth"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	ConfigFile string // --config；显式给出时必须存在

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 gpth.toml 的解析结构。
type FileConfig struct {
	Path        string   `toml:"path"`
	OutputDir   string   `toml:"output_dir"`
	WorkDir     string   `toml:"work_dir"`
	Apply       *bool    `toml:"apply"`
	Concurrency int      `toml:"concurrency"`
	ExcludeDirs []string `toml:"exclude_dirs"`
	IgnoredExts []string `toml:"ignored_extensions"`
	DateFields  []string `toml:"date_fields"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
//（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path      string // 导出根目录（绝对路径）
	OutputDir string // 归档输出目录（绝对路径）
	WorkDir   string // 工件/缓存目录（绝对路径）

	Apply       bool
	Concurrency int
	ExcludeDirs []string
	IgnoredExts []string
	DateFields  []string // 日期回退顺序，已通过 takeout.ValidateDatePolicy
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 给了 --config：读取该文件（必须存在）
// 2) CLI 提供 path：尝试读取 <path>/gpth.toml（可选）
// 3) CLI 未提供 path：必须读取 <cwd>/gpth.toml（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - apply：CLI --apply/--apply=false > config > 默认 false（dry-run）
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.ConfigFile) != "" {
		cfgPath := absCleanFrom(cwdAbs, cli.ConfigFile)
		fc, exists, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		return mergeWithCLI(cwdAbs, cli, fc, cfgPath)
	}

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/gpth.toml。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, FileName)
		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return mergeWithCLI(cwdAbs, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/gpth.toml，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}
	return mergeWithCLI(cwdAbs, cli, fc, cfgPath)
}

func mergeWithCLI(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// path：CLI > config；两边都没有在 LoadEffective 已拦截。
	rawPath := cli.Path
	if strings.TrimSpace(rawPath) == "" {
		rawPath = fc.Path
	}
	if strings.TrimSpace(rawPath) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}
	absPath := absCleanFrom(cwdAbs, rawPath)

	// apply：CLI > config > 默认 false（dry-run 是安全默认）。
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围约定 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	outputDir := strings.TrimSpace(fc.OutputDir)
	if outputDir == "" {
		outputDir = filepath.Join(absPath, DefaultOutputName)
	} else {
		outputDir = absCleanFrom(cwdAbs, outputDir)
	}

	workDir := strings.TrimSpace(fc.WorkDir)
	if workDir == "" {
		workDir = filepath.Join(absPath, DefaultWorkName)
	} else {
		workDir = absCleanFrom(cwdAbs, workDir)
	}

	dateFields := fc.DateFields
	if len(dateFields) == 0 {
		dateFields = takeout.DefaultDatePolicy()
	}
	if err := takeout.ValidateDatePolicy(dateFields); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	ignored := make([]string, 0, len(fc.IgnoredExts))
	for _, ext := range fc.IgnoredExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		ignored = append(ignored, ext)
	}

	return EffectiveConfig{
		Path:        absPath,
		OutputDir:   outputDir,
		WorkDir:     workDir,
		Apply:       apply,
		Concurrency: concurrency,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
		IgnoredExts: ignored,
		DateFields:  append([]string(nil), dateFields...),
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。不存在不算错误（exists=false）。
func readFileConfig(path string) (FileConfig, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	var fc FileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
