// Package table 解析分隔符文本表格：首行为表头，其余每行转换为一个 record.Record。
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ByLCY/slidesmith/record"
)

// sniffSample 是分隔符探测使用的前缀长度。
const sniffSample = 2048

// Parse 读取整个输入并返回按输入顺序排列的行。
// 去除 UTF-8 BOM，非法字节替换为 U+FFFD。引号不规范的行由宽松模式按字面吸收，
// 单元格数不一致的行按表头对齐；仍被 csv 判定为格式错误的行会被跳过，不中断解析。
func Parse(r io.Reader, log *slog.Logger) ([]record.Record, error) {
	if log == nil {
		log = slog.Default()
	}
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	raw, err := io.ReadAll(decoded)
	if err != nil {
		return nil, fmt.Errorf("读取表格失败: %w", err)
	}
	content := string(raw)
	delim := DetectDelimiter(content)

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	var rows []record.Record
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			log.Warn("跳过格式错误的行", "line", perr.Line, "error", perr.Err)
			continue
		}
		if err != nil {
			return rows, fmt.Errorf("读取表格行失败: %w", err)
		}
		rows = append(rows, toRecord(header, cells))
	}
	return rows, nil
}

// toRecord 按表头对齐单元格：缺失的单元格视为空串，多余的单元格被忽略。
func toRecord(header, cells []string) record.Record {
	fields := make([]record.Field, len(header))
	for i, name := range header {
		fields[i].Name = name
		if i < len(cells) {
			fields[i].Value = cells[i]
		}
	}
	return record.New(fields)
}
