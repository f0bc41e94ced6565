package record

import (
	"strconv"
	"strings"
)

// Role 是解析目标字段的角色。
type Role int

const (
	Primary Role = iota
	Secondary
	GroupKey
	SlideIndex
)

// Policy 是一个角色的候选键列表；Positional 为 true 时最后退回到第一列的值。
type Policy struct {
	Candidates []string
	Positional bool
}

// Resolver 将角色映射到解析策略。
type Resolver struct {
	policies map[Role]Policy
}

// Lenient 用于单图（post）流程：primary 允许退回到第一列。
var Lenient = Resolver{policies: map[Role]Policy{
	Primary:    {Candidates: []string{"texto_linea1", "linea1"}, Positional: true},
	Secondary:  {Candidates: []string{"texto_linea2", "linea2"}},
	GroupKey:   {Candidates: []string{"carrusel_id"}},
	SlideIndex: {Candidates: []string{"slide_numero"}},
}}

// Strict 用于轮播（carousel）流程：从不使用位置回退。
var Strict = Resolver{policies: map[Role]Policy{
	Primary:    {Candidates: []string{"texto_linea1", "linea1"}},
	Secondary:  {Candidates: []string{"texto_linea2", "linea2"}},
	GroupKey:   {Candidates: []string{"carrusel_id"}},
	SlideIndex: {Candidates: []string{"slide_numero"}},
}}

// Resolve 返回角色对应的原始值；候选键的值为空时继续尝试下一个，全部缺失返回空串。
func (res Resolver) Resolve(rec Record, role Role) string {
	p, ok := res.policies[role]
	if !ok {
		return ""
	}
	for _, key := range p.Candidates {
		if v, ok := rec.Get(key); ok && v != "" {
			return v
		}
	}
	if p.Positional {
		if v, ok := rec.First(); ok {
			return v
		}
	}
	return ""
}

// Text 是一次渲染可能包含的两个文本槽位。
type Text struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Text 解析并去除首尾空白后的两个文本槽位。
func (res Resolver) Text(rec Record) Text {
	return Text{
		Primary:   strings.TrimSpace(res.Resolve(rec, Primary)),
		Secondary: strings.TrimSpace(res.Resolve(rec, Secondary)),
	}
}

// GroupKey 返回去除空白后的分组键；为空表示该行不参与分组。
func (res Resolver) GroupKey(rec Record) string {
	return strings.TrimSpace(res.Resolve(rec, GroupKey))
}

// SlideIndex 把 slide_numero 解析为非负整数；缺失或非数字时为 0。
func (res Resolver) SlideIndex(rec Record) int {
	n, ok := ParseIndex(res.Resolve(rec, SlideIndex))
	if !ok {
		return 0
	}
	return n
}

// ParseIndex 仅接受纯 ASCII 数字组成的非负整数字面量。
func ParseIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if !IsDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsDigits 报告 s 是否为非空的纯 ASCII 数字串。
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
