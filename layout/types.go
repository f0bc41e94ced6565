package layout

// 该文件定义文本块与版面方案，供排版计算、渲染与调试 JSON 共用。

// TextBlock 表示一个文本槽位换行后的结果，行高为像素。
// 空文本对应零行，而不是一行空串。
type TextBlock struct {
	Lines      []string `json:"lines"`
	LineHeight int      `json:"lineHeight"`
}

// LineCount 返回行数。
func (b TextBlock) LineCount() int { return len(b.Lines) }

// Height 返回块的总高度（像素）。
func (b TextBlock) Height() int { return len(b.Lines) * b.LineHeight }

// Empty 报告块是否不含任何行。
func (b TextBlock) Empty() bool { return len(b.Lines) == 0 }

// Plan 是单张图片完全确定的纵向版面。
// 仅当两个块都存在且非空时 Gap 才不为 0。
type Plan struct {
	StartY int        `json:"startY"`
	Left   int        `json:"left"`
	Block1 TextBlock  `json:"block1"`
	Block2 *TextBlock `json:"block2,omitempty"`
	Gap    int        `json:"gap"`
}

// TotalHeight = height(block1) + gap + height(block2)。
func (p Plan) TotalHeight() int {
	total := p.Block1.Height() + p.Gap
	if p.Block2 != nil {
		total += p.Block2.Height()
	}
	return total
}

// PlacedLine 是一行文本的绘制坐标，(X, Y) 为该行的左中点。
type PlacedLine struct {
	Content string `json:"content"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Block   int    `json:"block"`
}

// Lines 按绘制顺序展开所有行的坐标。
func (p Plan) Lines() []PlacedLine {
	var out []PlacedLine
	cursorY := p.StartY
	for _, line := range p.Block1.Lines {
		out = append(out, PlacedLine{Content: line, X: p.Left, Y: cursorY, Block: 1})
		cursorY += p.Block1.LineHeight
	}
	if p.Block2 == nil || p.Block2.Empty() {
		return out
	}
	cursorY += p.Gap
	for _, line := range p.Block2.Lines {
		out = append(out, PlacedLine{Content: line, X: p.Left, Y: cursorY, Block: 2})
		cursorY += p.Block2.LineHeight
	}
	return out
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// NamedPlan 记录某个输出文件对应的版面，供调试 JSON 与校样使用。
type NamedPlan struct {
	Name string `json:"name"`
	Plan Plan   `json:"plan"`
}
