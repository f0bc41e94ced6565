package fonts

import (
	"fmt"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Source 是解析后的字体来源。
type Source struct {
	Name        string // 实际使用的路径或 embed 名称
	Data        []byte // SFNT 字节；降级到 basicfont 时为空
	Substituted bool   // 是否使用了替代字体
}

// Resolve 依次尝试 paths，全部失败时使用内置回退字体。字体缺失从不导致失败。
func Resolve(log *slog.Logger, paths ...string) Source {
	if log == nil {
		log = slog.Default()
	}
	for i, p := range paths {
		if p == "" {
			continue
		}
		data, err := Load(p)
		if err != nil {
			log.Warn("字体不可用，尝试下一个", "font", p, "error", err)
			continue
		}
		if _, err := opentype.Parse(data); err != nil {
			log.Warn("字体解析失败，尝试下一个", "font", p, "error", err)
			continue
		}
		return Source{Name: p, Data: data, Substituted: i > 0}
	}
	data, err := Load(FallbackName)
	if err != nil {
		return Source{Name: "basicfont", Substituted: true}
	}
	if len(paths) > 0 {
		log.Warn("使用内置回退字体", "font", FallbackName)
	}
	return Source{Name: FallbackName, Data: data, Substituted: len(paths) > 0}
}

// NewFace 以像素字号创建字体面（72 DPI 下 1pt = 1px）。
func NewFace(src Source, sizePx float64) (font.Face, error) {
	if len(src.Data) == 0 {
		return basicfont.Face7x13, nil
	}
	f, err := opentype.Parse(src.Data)
	if err != nil {
		return nil, fmt.Errorf("解析字体 %s 失败: %w", src.Name, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("创建字体面失败: %w", err)
	}
	return face, nil
}

// FaceOrDefault 与 NewFace 相同，但失败时降级为 basicfont.Face7x13。
func FaceOrDefault(src Source, sizePx float64, log *slog.Logger) font.Face {
	face, err := NewFace(src, sizePx)
	if err != nil {
		if log != nil {
			log.Warn("字体面创建失败，降级为默认位图字体", "font", src.Name, "error", err)
		}
		return basicfont.Face7x13
	}
	return face
}
