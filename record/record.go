// Package record 提供表格行（Record）及其字段解析策略。
package record

import "strings"

// Field 是一行中的一个单元格：表头名与原始值。
type Field struct {
	Name  string
	Value string
}

// Record 是一行输入：保持列顺序的字段列表，外加一次性构建的规范化键索引。
type Record struct {
	fields []Field
	index  map[string]int
}

// New 构建 Record，键按小写、去空白规范化；同名键以最后一次出现的值为准。
func New(fields []Field) Record {
	r := Record{fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		key := normalizeKey(f.Name)
		if key == "" {
			continue
		}
		r.index[key] = i
	}
	return r
}

// FromPairs 便于测试与调用方以 name, value, name, value... 的形式构建 Record。
func FromPairs(pairs ...string) Record {
	fields := make([]Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return New(fields)
}

// Get 以大小写与首尾空白不敏感的方式查找字段原始值。
func (r Record) Get(key string) (string, bool) {
	i, ok := r.index[normalizeKey(key)]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// First 返回第一列的值；第一列的表头重复出现时取最后一次出现的值，与 Get 一致。
func (r Record) First() (string, bool) {
	if len(r.fields) == 0 {
		return "", false
	}
	if i, ok := r.index[normalizeKey(r.fields[0].Name)]; ok {
		return r.fields[i].Value, true
	}
	return r.fields[0].Value, true
}

// Len 返回字段个数。
func (r Record) Len() int { return len(r.fields) }

// Fields 返回字段副本。
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
