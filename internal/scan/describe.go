package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

// DescribeMedia 把 file_list 工件里的媒体绝对路径还原为领域对象。
// 必须重新 stat：Size/ModUnix 不进工件，阶段之间文件也可能被动过。
// 任何一条 stat 失败都是致命错误——在过期清单上继续规划是危险的。
func DescribeMedia(root string, paths []string) ([]domain.MediaFile, error) {
	out := make([]domain.MediaFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("清单里的媒体文件不可用：%w", err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, fmt.Errorf("清单路径不在扫描根下：%w", err)
		}
		name := filepath.Base(p)
		out = append(out, domain.MediaFile{
			AbsPath: p,
			RelPath: rel,
			Dir:     filepath.Dir(p),
			Name:    name,
			Base:    strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:     strings.ToLower(filepath.Ext(name)),
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
	}
	return out, nil
}

// DescribeSidecars 还原边车对象。边车内容按需读取，这里不做 stat。
func DescribeSidecars(paths []string) []domain.SidecarFile {
	out := make([]domain.SidecarFile, 0, len(paths))
	for _, p := range paths {
		out = append(out, domain.SidecarFile{
			AbsPath: p,
			Dir:     filepath.Dir(p),
			Name:    filepath.Base(p),
		})
	}
	return out
}
