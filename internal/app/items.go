package app

import (
	"fmt"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

// UnmatchedItem 把配对失败转成报告项。每个文件单独一条，便于用户逐个修复。
func UnmatchedItem(u domain.Unmatched) domain.ReportItem {
	item := domain.ReportItem{
		Src: u.Media.RelPath,
	}
	switch u.Kind {
	case "ambiguous":
		item.Status = domain.StatusAmbiguous
		item.ErrorCode = domain.ErrCodeAmbiguousMatch
		item.Candidates = append([]string(nil), u.Candidates...)
		item.ErrorMsg = fmt.Sprintf("同级命中多个边车候选：%v；请人工确认后重命名", item.Candidates)
	default:
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeUnmatchedMedia
		item.ErrorMsg = "目录内找不到对应的元数据边车；文件保留原地，不进入计划"
	}
	return item
}

// OrphanItem 把未被选中的边车转成报告项（信息性，不算失败）。
func OrphanItem(sc domain.SidecarFile) domain.ReportItem {
	return domain.ReportItem{
		Status:   domain.StatusOrphanSidecar,
		ErrorMsg: "边车未被任何媒体文件选中；可能其媒体文件缺失或被忽略",
		Src:      sc.AbsPath,
	}
}
