package layout

import "errors"

// ErrUnmeasurable 表示 Measurer 无法测量某段文本（例如字体缺少字形）。
var ErrUnmeasurable = errors.New("layout: 文本无法测量")

// Geometry 是与画布尺寸无关的固定排版参数，单位均为像素。
type Geometry struct {
	CanvasWidth  int `json:"canvasWidth"`
	CanvasHeight int `json:"canvasHeight"`
	MaxWidth     int `json:"maxWidth"`     // 文本框最大宽度
	LineHeight   int `json:"lineHeight"`   // 固定行距
	BlockGap     int `json:"blockGap"`     // 两个文本块之间的间距
	AnchorOffset int `json:"anchorOffset"` // 居中后整体下移的偏置
}

// CenterY 返回画布纵向中心。
func (g Geometry) CenterY() int { return g.CanvasHeight / 2 }

// LeftX 返回水平居中的文本框左边界：(canvasWidth - maxWidth) / 2。
func (g Geometry) LeftX() int { return (g.CanvasWidth - g.MaxWidth) / 2 }

// Measurer 负责测量一行文本渲染后的像素宽度。
type Measurer interface {
	MeasureString(s string) (int, error)
}
