package takeout

import (
	"fmt"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

// 日期来源的配置名。顺序即回退顺序，由操作者在配置里决定；
// 只从元数据（而非嵌入式 EXIF）取日期是领域策略，不是普适正确性规则，
// 所以这里做成显式可覆盖的配置点而不是写死。
const (
	DatePhotoTaken = "photo_taken_time" // photoTakenTime.timestamp
	DateCreation   = "creation_time"    // creationTime.timestamp
	DateFileMtime  = "file_mtime"       // 文件系统 mtime（默认不启用，需操作者显式加入）
)

// DefaultDatePolicy 是默认回退顺序：拍摄时间，缺失时退到创建时间。
// 不含 file_mtime：文件系统时间戳在迁移过的导出里普遍不可信。
func DefaultDatePolicy() []string {
	return []string{DatePhotoTaken, DateCreation}
}

// ValidateDatePolicy 校验配置里的 date_fields 值。
func ValidateDatePolicy(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("date_fields 不能为空")
	}
	for _, f := range fields {
		switch f {
		case DatePhotoTaken, DateCreation, DateFileMtime:
		default:
			return fmt.Errorf("date_fields 含未知值 %q（可选：%s, %s, %s）",
				f, DatePhotoTaken, DateCreation, DateFileMtime)
		}
	}
	return nil
}

// ResolveDate 按 policy 顺序解析记录的规范时间戳（epoch 秒）。
// 全部来源都缺失时返回 domain.TSUnknown——未知日期是合法数据，
// 继续流经管线并落入 unknown-date 桶，不是错误。
//
// mtime 仅在 policy 显式包含 file_mtime 时才会被用到。
func ResolveDate(rec Record, policy []string, mtime int64) int64 {
	for _, f := range policy {
		switch f {
		case DatePhotoTaken:
			if ts, ok := rec.Timestamp("photoTakenTime"); ok {
				return ts
			}
		case DateCreation:
			if ts, ok := rec.Timestamp("creationTime"); ok {
				return ts
			}
		case DateFileMtime:
			if mtime > 0 {
				return mtime
			}
		}
	}
	return domain.TSUnknown
}
