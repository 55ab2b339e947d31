package app

import (
	"fmt"
	"os"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/takeout"
)

// ResolveOutput 是日期解析阶段的产物。
// Records 按媒体绝对路径缓存解析好的边车记录，供合并阶段复用（每个边车只读一次）。
type ResolveOutput struct {
	Resolved []domain.ResolvedPair
	Records  map[string]takeout.Record
	Items    []domain.ReportItem
}

// ResolvePairs 读取每对的边车记录并按 policy 解析规范时间戳。
//
// 失败降级规则（单条失败不影响其他，也不丢文件）：
// - 边车不可读/解析失败：上报 sidecar_invalid，该对按空记录继续（落 unknown-date 桶）
// - 日期不可解析：上报 unknown_date，该对继续（落 unknown-date 桶，供人工复核）
func ResolvePairs(pairs []domain.Pair, policy []string) ResolveOutput {
	out := ResolveOutput{
		Resolved: make([]domain.ResolvedPair, 0, len(pairs)),
		Records:  make(map[string]takeout.Record, len(pairs)),
	}

	// 同一边车可能服务多个媒体文件（共享约定），按路径只解析一次。
	parsed := make(map[string]takeout.Record, len(pairs))

	for _, p := range pairs {
		rec, ok := parsed[p.Sidecar.AbsPath]
		if !ok {
			var err error
			rec, err = readRecord(p.Sidecar.AbsPath)
			if err != nil {
				out.Items = append(out.Items, domain.ReportItem{
					Status:    domain.StatusSidecarInvalid,
					ErrorCode: domain.ErrCodeInputInvalid,
					ErrorMsg:  err.Error(),
					Src:       p.Media.RelPath,
				})
				rec = takeout.Record{}
			}
			parsed[p.Sidecar.AbsPath] = rec
		}

		ts := takeout.ResolveDate(rec, policy, p.Media.ModUnix)
		if ts == domain.TSUnknown && len(rec) > 0 {
			out.Items = append(out.Items, domain.ReportItem{
				Status:    domain.StatusUnknownDate,
				ErrorCode: domain.ErrCodeUnknownDate,
				ErrorMsg:  "边车记录里没有可解析的时间戳；该文件进入 unknown-date 桶，请人工复核",
				Src:       p.Media.RelPath,
			})
		}

		out.Records[p.Media.AbsPath] = rec
		out.Resolved = append(out.Resolved, domain.ResolvedPair{
			Pair:       p,
			Timestamp:  ts,
			Provenance: p.Media.Provenance(),
		})
	}
	return out
}

func readRecord(path string) (takeout.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取边车失败：%w", err)
	}
	return takeout.Parse(b)
}
