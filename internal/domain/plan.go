package domain

// MovePlanEntry 是最终移动计划里的一条指令（引擎的唯一输出工件）。
//
// 字段名与形状是对外契约：外部执行器按结构解析，不得变更。
//
// 不变量：
// - Dest 在整个计划内全局唯一
// - 任何 MediaFile 至多对应一条 entry
// - 参与合并的任何非空元数据值都可以从 MergedJSON 恢复（primary 或 alternates）
type MovePlanEntry struct {
	Src        string         `json:"src"`       // 媒体文件绝对路径
	Dest       string         `json:"dest"`      // 相对目标路径（year/month/basename）
	Timestamp  float64        `json:"timestamp"` // epoch 秒；未知日期为 -1
	Provenance []string       `json:"provenance"`
	MergedJSON map[string]any `json:"merged_json"`
}
