package layout

import "strings"

// Wrap 使用贪心算法把文本按像素宽度折行。
// 显式换行总是被保留：每个段落独立折行，空段落输出一个空串行。
// 单词不会被拆开，比 maxWidth 更宽的单词独占一行。
// 某个候选行测量失败时，先输出已累积的行，再以失败的单词开始新行。
func Wrap(text string, maxWidth int, m Measurer) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			width, err := m.MeasureString(candidate)
			if err == nil && width <= maxWidth {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		lines = append(lines, current)
	}
	return lines
}

// NewBlock 将一个文本槽位构造成 TextBlock。
// 去除首尾空白后为空的文本得到零行。
func NewBlock(text string, g Geometry, m Measurer) TextBlock {
	block := TextBlock{LineHeight: g.LineHeight}
	text = strings.TrimSpace(text)
	if text == "" {
		return block
	}
	block.Lines = Wrap(text, g.MaxWidth, m)
	return block
}
