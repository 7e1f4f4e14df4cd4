// 包 export 负责历史导出：将历史查询结果写为 JSON 文件。
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-publicist/internal/model"
)

// MaxRecords 为单次导出的记录上限。
const MaxRecords = 1000

// ToJSON 将历史记录（最新在前）写入 JSON 文件（带缩进格式）。
func ToJSON(path string, records []model.HistoryRecord) error {
	return write(path, build(records, time.Now()))
}

func build(records []model.HistoryRecord, now time.Time) model.HistoryExport {
	// 全局上限保护：调用方已按时间倒序，仅保留最新的部分
	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	if records == nil {
		records = []model.HistoryRecord{}
	}
	return model.HistoryExport{ExportedAt: now.UTC(), Count: len(records), Records: records}
}

func write(path string, out model.HistoryExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
