package binding

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

// ErrUnknownField 表示模板引用了未提供的变量。
var ErrUnknownField = errors.New("binding: 未知的模板变量")

// Template 是编译后的名称模板。
type Template struct {
	pattern *Pattern
	allowed map[string]bool
}

// Compile 解析模板，并校验它只引用 allowed 中的变量（allowed 为空时不校验）。
func Compile(src string, allowed ...string) (*Template, error) {
	p, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if len(p.Parts) == 0 {
		return nil, fmt.Errorf("名称模板不能为空")
	}
	t := &Template{pattern: p}
	if len(allowed) > 0 {
		t.allowed = make(map[string]bool, len(allowed))
		for _, a := range allowed {
			t.allowed[a] = true
		}
		for _, name := range p.Fields() {
			if !t.allowed[name] {
				return nil, fmt.Errorf("模板 %q 引用了 ${%s}: %w", src, name, ErrUnknownField)
			}
		}
	}
	return t, nil
}

// Execute 将 ${name} 替换为 data 中的值，${name:n} 左侧补零到至少 n 个字符。
// 值中的路径分隔符替换为 '_'，插值本身不会截掉名称的前缀；
// 模板字面量中的目录部分被去掉，结果只保留基本文件名。
func (t *Template) Execute(data map[string]string) (string, error) {
	var b strings.Builder
	for _, part := range t.pattern.Parts {
		if part.Text != nil {
			b.WriteString(*part.Text)
			continue
		}
		val, ok := data[part.Field.Name]
		if !ok {
			return "", fmt.Errorf("${%s}: %w", part.Field.Name, ErrUnknownField)
		}
		b.WriteString(ZeroPad(sanitize(val), part.Field.Width))
	}
	name := path.Base(strings.ReplaceAll(b.String(), "\\", "/"))
	if name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("模板 %q 生成了无效的文件名", t.pattern.String())
	}
	return name, nil
}

// String 返回模板源文本。
func (t *Template) String() string { return t.pattern.String() }

// ZeroPad 在左侧补 '0' 直到字符数至少为 width。
func ZeroPad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return strings.Repeat("0", n) + s
	}
	return s
}

// sanitize 把插值中的路径分隔符替换为 '_'。
func sanitize(v string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(v)
}
