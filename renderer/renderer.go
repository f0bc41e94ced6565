package renderer

import (
	"image"

	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/record"
)

// Renderer 在模板副本上绘制一至两个文本块并返回合成后的位图及其版面。
// 模板只读，实现不得修改它。
type Renderer interface {
	Render(template image.Image, text record.Text) (image.Image, layout.Plan, error)
}
