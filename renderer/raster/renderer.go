// Package raster 使用 golang.org/x/image/font 在位图模板上绘制文本。
package raster

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/record"
	"github.com/ByLCY/slidesmith/renderer"
)

// Renderer 是单图渲染器，同时实现 layout.Measurer。
// font.Face 不是并发安全的，mu 串行化对它的访问。
type Renderer struct {
	mu       sync.Mutex
	face     font.Face
	color    color.Color
	geometry layout.Geometry
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

// Options configures the raster renderer.
type Options struct {
	Geometry layout.Geometry
	Color    color.Color // 文本颜色，默认白色
}

// NewRenderer creates a renderer drawing with face.
func NewRenderer(face font.Face, opts Options) *Renderer {
	c := opts.Color
	if c == nil {
		c = color.White
	}
	return &Renderer{face: face, color: c, geometry: opts.Geometry}
}

// MeasureString 返回文本的墨迹宽度（像素）。字体面无法给出某个字形的宽度时返回 layout.ErrUnmeasurable。
func (r *Renderer) MeasureString(s string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.measure(s)
}

func (r *Renderer) measure(s string) (int, error) {
	for _, ch := range s {
		if ch == ' ' {
			continue
		}
		if _, ok := r.face.GlyphAdvance(ch); !ok {
			return 0, fmt.Errorf("字符 %q: %w", ch, layout.ErrUnmeasurable)
		}
	}
	bounds, _ := font.BoundString(r.face, s)
	return (bounds.Max.X - bounds.Min.X).Ceil(), nil
}

// lockedMeasurer 供已持有 mu 的调用方使用。
type lockedMeasurer struct{ r *Renderer }

func (m lockedMeasurer) MeasureString(s string) (int, error) { return m.r.measure(s) }

func (r *Renderer) plan(text record.Text) layout.Plan {
	m := lockedMeasurer{r}
	block1 := layout.NewBlock(text.Primary, r.geometry, m)
	var block2 *layout.TextBlock
	if b := layout.NewBlock(text.Secondary, r.geometry, m); !b.Empty() {
		block2 = &b
	}
	return layout.Arrange(block1, block2, r.geometry)
}

// Render 克隆模板，按版面逐行绘制文本。空槽位不绘制任何内容。
func (r *Renderer) Render(template image.Image, text record.Text) (image.Image, layout.Plan, error) {
	if template == nil {
		return nil, layout.Plan{}, fmt.Errorf("模板为空")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	plan := r.plan(text)
	dst := imaging.Clone(template)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.color),
		Face: r.face,
	}
	// 与左中锚点对齐：基线 = 行中线 + (ascent - descent) / 2
	metrics := r.face.Metrics()
	middle := (metrics.Ascent - metrics.Descent) / 2
	offset := dst.Bounds().Min
	for _, line := range plan.Lines() {
		if line.Content == "" {
			continue
		}
		d.Dot = fixed.Point26_6{
			X: fixed.I(offset.X + line.X),
			Y: fixed.I(offset.Y+line.Y) + middle,
		}
		d.DrawString(line.Content)
	}
	return dst, plan, nil
}
