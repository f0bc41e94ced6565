package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/slidesmith/fonts"
	"github.com/ByLCY/slidesmith/layout"
)

const (
	guideWidth   = 0.3 // mm
	captionSize  = 8.0 // pt
	captionInset = 3.0 // mm
)

var (
	backgroundColor = canvas.Hex("#141414")
	guideColor      = canvas.Hex("#c5a55f")
	centerColor     = canvas.Hex("#5f7fc5")
)

// Renderer draws layout plans as a vector PDF proof via github.com/tdewolff/canvas:
// one page per output image, with the text box, the canvas center line and every
// placed line at its computed coordinate. Geometry is converted px → mm at 96 DPI.
type Renderer struct {
	fontData  []byte
	textColor layout.Color

	fontMu sync.Mutex
	family *canvas.FontFamily
}

// Options configures the proof renderer.
type Options struct {
	Font      []byte // SFNT bytes; nil uses the embedded fallback
	TextColor layout.Color
}

// Page is one proof page.
type Page struct {
	Name     string
	Plan     layout.Plan
	Geometry layout.Geometry
	FontSize float64 // px
}

// NewRenderer creates a proof renderer.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{fontData: opts.Font, textColor: opts.TextColor}
}

// Render 将所有页面输出为 PDF 字节切片。
func (r *Renderer) Render(pages []Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	family, err := r.ensureFontFamily()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	first := pages[0].Geometry
	writer := pdf.New(&buf, toMm(first.CanvasWidth), toMm(first.CanvasHeight), nil)
	writer.SetInfo("slidesmith layout proof", "", "", "", "slidesmith")
	for i, page := range pages {
		w, h := toMm(page.Geometry.CanvasWidth), toMm(page.Geometry.CanvasHeight)
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与版面保持左上角为原点

		r.drawPage(ctx, family, page)
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, family *canvas.FontFamily, page Page) {
	g := page.Geometry
	w, h := toMm(g.CanvasWidth), toMm(g.CanvasHeight)

	// 背景
	ctx.SetFillColor(backgroundColor)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))

	// 画布中线
	ctx.SetStrokeColor(centerColor)
	ctx.SetStrokeWidth(guideWidth)
	line := &canvas.Path{}
	line.MoveTo(0, 0)
	line.LineTo(w, 0)
	ctx.DrawPath(0, toMm(g.CenterY()), line)

	// 文本框：宽度为 maxWidth，高度为整个堆叠的总高度
	ctx.SetFillColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeColor(guideColor)
	ctx.DrawPath(toMm(g.LeftX()), toMm(page.Plan.StartY), canvas.Rectangle(toMm(g.MaxWidth), toMm(page.Plan.TotalHeight())))

	// 文本行：y 为行的左中点，基线 = 中线 + (ascent - descent) / 2
	sizePt := layout.Length{Value: page.FontSize, Unit: layout.UnitPX}.ToPT()
	face := family.Face(sizePt, colorFromLayout(r.textColor), canvas.FontRegular, canvas.FontNormal)
	metrics := face.Metrics()
	for _, placed := range page.Plan.Lines() {
		if placed.Content == "" {
			continue
		}
		baseline := toMm(placed.Y) + (metrics.Ascent-metrics.Descent)/2
		ctx.DrawText(toMm(placed.X), baseline, canvas.NewTextLine(face, placed.Content, canvas.Left))
	}

	// 页面名称
	caption := family.Face(captionSize, guideColor, canvas.FontRegular, canvas.FontNormal)
	ctx.DrawText(captionInset, captionInset+caption.Metrics().Ascent, canvas.NewTextLine(caption, page.Name, canvas.Left))
}

func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}
	family := canvas.NewFontFamily("proof")
	if len(r.fontData) > 0 {
		if err := family.LoadFont(r.fontData, 0, canvas.FontRegular); err == nil {
			r.family = family
			return family, nil
		}
	}
	data, err := fonts.Load(fonts.FallbackName)
	if err != nil {
		return nil, err
	}
	family = canvas.NewFontFamily("proof-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载回退字体失败: %w", err)
	}
	r.family = family
	return family, nil
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toMm 将像素转换为毫米。
func toMm(px int) float64 { return layout.Px(px).ToMM() }
