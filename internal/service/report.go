package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"content-eval/internal/model"
)

// RenderReportMarkdown 生成实验结果报告（markdown）
func RenderReportMarkdown(exp *model.Experiment, report *Report, progress *EvaluationProgress) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# 内容生成对比实验结果：%s\n\n", exp.Name))
	b.WriteString(fmt.Sprintf("- experiment_id: %d\n", exp.ID))
	b.WriteString(fmt.Sprintf("- status: %s\n", exp.Status))
	b.WriteString(fmt.Sprintf("- baseline_samples: %d\n", len(exp.BaselineSamples)))
	b.WriteString(fmt.Sprintf("- created_at: %s\n", exp.CreatedAt.Format(time.RFC3339)))
	if progress != nil {
		b.WriteString(fmt.Sprintf("- evaluated: %d / %d\n", progress.Done, progress.Total))
	}
	b.WriteString("\n")

	b.WriteString("## 总体\n\n")
	if report.Summary.Count == 0 || report.Summary.AvgOverall == nil {
		b.WriteString("- 暂无已评分样本\n\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("- count: %d\n", report.Summary.Count))
	b.WriteString(fmt.Sprintf("- avg_overall: %.3f\n\n", *report.Summary.AvgOverall))

	writeGroupTable(&b, "按模型", "模型", report.ByModel)
	writeGroupTable(&b, "按提示词策略", "策略", report.ByStrategy)
	writeGroupTable(&b, "按任务", "任务", report.ByTask)

	b.WriteString("## 说明\n\n")
	b.WriteString("- 均值为 overall_quality (1-5) 的算术平均，未做加权与显著性检验\n")
	b.WriteString("- 仅统计已提交评分的样本，未评分的预留不计入\n")
	return b.String()
}

func writeGroupTable(b *strings.Builder, title, keyHeader string, groups map[string]GroupStats) {
	b.WriteString(fmt.Sprintf("## %s\n\n", title))
	b.WriteString(fmt.Sprintf("| %s | N | AvgOverall |\n", keyHeader))
	b.WriteString("| --- | ---: | ---: |\n")

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	// 均值高的在前，相同时按名称
	sort.Slice(keys, func(i, j int) bool {
		gi, gj := groups[keys[i]], groups[keys[j]]
		if gi.AvgOverall != gj.AvgOverall {
			return gi.AvgOverall > gj.AvgOverall
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		g := groups[k]
		b.WriteString(fmt.Sprintf("| %s | %d | %.3f |\n", k, g.Count, g.AvgOverall))
	}
	b.WriteString("\n")
}
