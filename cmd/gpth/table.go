package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shreevatsa/PoorMansGooglePhotosTakeoutHelper/internal/domain"
)

// renderSummaryTable 把 Summary 渲染成终端表格（只在 stdout 为 TTY 时用）。
func renderSummaryTable(s domain.ReportSummary) string {
	rows := []struct {
		label string
		n     int
	}{
		{"扫描到的媒体", s.MediaScanned},
		{"扫描到的边车", s.SidecarsScanned},
		{"配对成功", s.Paired},
		{"计划条目", s.Planned},
		{"合并的重复", s.MergedDuplicates},
		{"保留的重复", s.RetainedDuplicates},
		{"未配对", s.Unmatched},
		{"歧义配对", s.Ambiguous},
		{"未知日期", s.UnknownDate},
		{"字段冲突", s.FieldConflicts},
		{"孤儿边车", s.OrphanSidecars},
		{"跨目标重复", s.CrossDuplicates},
		{"失败", s.Failed},
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"项目", "数量"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.label, strconv.Itoa(r.n)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
