package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

// mediaExts 是 Takeout 导出中已知的媒体扩展名（全小写）。
// 未列出的扩展名不会被悄悄忽略：它们进入 Result.Unknown，提示用户复核。
var mediaExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {},
	".heic": {}, ".heif": {},
	".mp4": {}, ".mov": {}, ".m4v": {}, ".3gp": {},
	".avi": {}, ".mpg": {}, ".mkv": {}, ".wmv": {},
	".divx": {}, ".webm": {},
	".gif": {}, ".bmp": {}, ".tiff": {}, ".tif": {},
	".arw": {}, ".cr2": {}, ".dng": {}, ".nef": {},
	".orf": {}, ".raf": {}, ".sr2": {}, ".rw2": {},
	".mp": {}, // Google Motion Photo（有时是独立文件）
}

// Result 是一次扫描的完整产物：媒体与边车分列，其余按“忽略/未知”分别记账。
type Result struct {
	Media    []domain.MediaFile
	Sidecars []domain.SidecarFile

	IgnoredCount int
	IgnoredByExt map[string]int
	UnknownExts  map[string]string // ext -> 一个示例路径（便于用户核查）
}

// Scan 扫描 root 下的媒体文件与 JSON 边车，并应用目录排除规则。
//
// 规则（硬约束）：
// - 永久排除：workDir（工具自己的工件目录）
// - excludeDirs：来自配置文件，均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
// - macOS "._" 幽灵文件直接忽略
// - ignoredExts：来自配置（如 ".html"），计数但不进入结果
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func Scan(root, workDir string, excludeDirs, ignoredExts []string) (Result, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, workDir, excludeDirs)

	ignored := make(map[string]struct{}, len(ignoredExts))
	for _, e := range ignoredExts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		ignored[e] = struct{}{}
	}

	res := Result{
		Media:        make([]domain.MediaFile, 0, 128),
		Sidecars:     make([]domain.SidecarFile, 0, 128),
		IgnoredByExt: map[string]int{},
		UnknownExts:  map[string]string{},
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, "._") {
			res.IgnoredCount++
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		dir := filepath.Dir(path)

		switch {
		case ext == ".json":
			res.Sidecars = append(res.Sidecars, domain.SidecarFile{
				AbsPath: path,
				Dir:     dir,
				Name:    name,
			})
		case isMediaExt(ext):
			info, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			res.Media = append(res.Media, domain.MediaFile{
				AbsPath: path,
				RelPath: rel,
				Dir:     dir,
				Name:    name,
				Base:    strings.TrimSuffix(name, filepath.Ext(name)),
				Ext:     ext,
				Size:    info.Size(),
				ModUnix: info.ModTime().Unix(),
			})
		default:
			if _, ok := ignored[ext]; ok {
				res.IgnoredCount++
				res.IgnoredByExt[ext]++
				return nil
			}
			if _, ok := res.UnknownExts[ext]; !ok {
				res.UnknownExts[ext] = path
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(res.Media, func(i, j int) bool { return res.Media[i].AbsPath < res.Media[j].AbsPath })
	sort.Slice(res.Sidecars, func(i, j int) bool { return res.Sidecars[i].AbsPath < res.Sidecars[j].AbsPath })
	return res, nil
}

func isMediaExt(ext string) bool {
	_, ok := mediaExts[ext]
	return ok
}

func buildExcluded(root, workDir string, excludeDirs []string) []string {
	excluded := make([]string, 0, 1+len(excludeDirs))
	if strings.TrimSpace(workDir) != "" {
		excluded = append(excluded, filepath.Clean(workDir))
	}

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
