package binding

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Pattern 是名称模板的语法树，例如 "carousel_${group:2}.zip"。
type Pattern struct {
	Parts []*Part `parser:"@@*"`
}

// Part 为字面文本或 ${...} 占位符之一。
type Part struct {
	Field *Placeholder `parser:"  @@"`
	Text  *string      `parser:"| @Text"`
}

// Placeholder 形如 ${name} 或 ${name:width}，width 表示左侧补零后的最小宽度。
type Placeholder struct {
	Name  string `parser:"Open @Ident"`
	Width int    `parser:"( Colon @Int )? Close"`
}

var (
	patternLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Open", Pattern: `\$\{`, Action: lexer.Push("Placeholder")},
			{Name: "Text", Pattern: `[^$]+|\$`, Action: nil},
		},
		"Placeholder": {
			{Name: "Whitespace", Pattern: `[ \t]+`, Action: nil},
			{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`, Action: nil},
			{Name: "Colon", Pattern: `:`, Action: nil},
			{Name: "Int", Pattern: `\d+`, Action: nil},
			{Name: "Close", Pattern: `\}`, Action: lexer.Pop()},
		},
	})

	patternParser = participle.MustBuild[Pattern](
		participle.Lexer(patternLexer),
		participle.Elide("Whitespace"),
	)
)

// Parse 解析名称模板。
func Parse(src string) (*Pattern, error) {
	p, err := patternParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("解析名称模板 %q 失败: %w", src, err)
	}
	return p, nil
}

// Fields 返回模板引用的占位符名称（按出现顺序，去重）。
func (p *Pattern) Fields() []string {
	var names []string
	seen := map[string]bool{}
	for _, part := range p.Parts {
		if part.Field == nil || seen[part.Field.Name] {
			continue
		}
		seen[part.Field.Name] = true
		names = append(names, part.Field.Name)
	}
	return names
}

// String 还原模板源文本。
func (p *Pattern) String() string {
	var b strings.Builder
	for _, part := range p.Parts {
		switch {
		case part.Field != nil && part.Field.Width > 0:
			fmt.Fprintf(&b, "${%s:%d}", part.Field.Name, part.Field.Width)
		case part.Field != nil:
			fmt.Fprintf(&b, "${%s}", part.Field.Name)
		case part.Text != nil:
			b.WriteString(*part.Text)
		}
	}
	return b.String()
}
