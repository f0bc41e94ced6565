// Package config 定义批量生成的全部固定参数：画布、两种模式各自的文本几何、
// 批次上限、输出命名模板与路径。配置从 TOML 加载在内置默认值之上，构建后只读，
// 以值的形式显式传给每个组件。
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ByLCY/slidesmith/binding"
	"github.com/ByLCY/slidesmith/layout"
)

// Mode 选择批次类型。
type Mode string

const (
	ModePosts     Mode = "posts"
	ModeCarousels Mode = "carousels"
)

// Config represents the top-level configuration.
type Config struct {
	Canvas   CanvasConfig `toml:"canvas"`
	Post     TextConfig   `toml:"post"`
	Carousel TextConfig   `toml:"carousel"`
	Batch    BatchConfig  `toml:"batch"`
	Naming   NamingConfig `toml:"naming"`
	Paths    PathsConfig  `toml:"paths"`
	Log      LogConfig    `toml:"log"`
}

// CanvasConfig 是模板画布尺寸（像素）。
type CanvasConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// TextConfig 是某一模式的文本几何。
type TextConfig struct {
	FontSize     float64 `toml:"font_size"`     // 像素字号
	Color        string  `toml:"color"`         // 十六进制颜色
	MaxWidth     int     `toml:"max_width"`     // 文本框宽度
	LineHeight   int     `toml:"line_height"`   // 固定行距
	BlockGap     int     `toml:"block_gap"`     // 两块之间的间距
	AnchorOffset int     `toml:"anchor_offset"` // 居中后的下移偏置
}

// BatchConfig 控制批次上限与预览。
type BatchConfig struct {
	MaxRows       int `toml:"max_rows"`
	Previews      int `toml:"previews"`
	ThumbnailSize int `toml:"thumbnail_size"`
}

// NamingConfig 是输出文件名模板，见 binding 包。
type NamingConfig struct {
	Post            string `toml:"post"`             // ${n}
	PostArchive     string `toml:"post_archive"`     // ${batch}
	Slide           string `toml:"slide"`            // ${slide}, ${group}
	Group           string `toml:"group"`            // ${group}
	CarouselArchive string `toml:"carousel_archive"` // ${batch}
}

// PathsConfig 记录输出目录、临时目录与回退输入。
type PathsConfig struct {
	OutputDir           string `toml:"output_dir"`
	ScratchDir          string `toml:"scratch_dir"` // 为空时使用系统临时目录
	Font                string `toml:"font"`
	FallbackCSV         string `toml:"fallback_csv"`
	FallbackCarouselCSV string `toml:"fallback_carousel_csv"`
	FallbackTemplate    string `toml:"fallback_template"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
}

// Default 返回内置默认配置：1080×1350 画布，42px 字号，590px 文本框，70px 行距。
func Default() Config {
	text := TextConfig{
		FontSize:     42,
		Color:        "#FFFFFF",
		MaxWidth:     590,
		LineHeight:   70,
		BlockGap:     50,
		AnchorOffset: 35,
	}
	return Config{
		Canvas:   CanvasConfig{Width: 1080, Height: 1350},
		Post:     text,
		Carousel: text,
		Batch:    BatchConfig{MaxRows: 300, Previews: 3, ThumbnailSize: 300},
		Naming: NamingConfig{
			Post:            "Post_${n}.png",
			PostArchive:     "Posts_${batch}.zip",
			Slide:           "slide_${slide}.png",
			Group:           "carousel_${group:2}.zip",
			CarouselArchive: "Carousels_${batch}.zip",
		},
		Paths: PathsConfig{
			OutputDir: "outputs",
			Font:      "NeueMontreal-Regular.otf",
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10},
	}
}

// Load 读取 TOML 文件并覆盖默认值；path 为空时直接返回默认配置。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("校验配置失败: %w", err)
	}
	return cfg, nil
}

// Validate 检查几何参数为正、颜色可解析、命名模板只引用允许的变量。
func (c Config) Validate() error {
	var errs []error
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas 尺寸必须为正: %dx%d", c.Canvas.Width, c.Canvas.Height))
	}
	for name, t := range map[string]TextConfig{"post": c.Post, "carousel": c.Carousel} {
		if t.FontSize <= 0 || t.MaxWidth <= 0 || t.LineHeight <= 0 || t.BlockGap < 0 {
			errs = append(errs, fmt.Errorf("[%s] font_size/max_width/line_height 必须为正，block_gap 不能为负", name))
		}
		if t.MaxWidth > c.Canvas.Width {
			errs = append(errs, fmt.Errorf("[%s] max_width %d 超出画布宽度 %d", name, t.MaxWidth, c.Canvas.Width))
		}
		if _, err := parseColor(t.Color); err != nil {
			errs = append(errs, fmt.Errorf("[%s] %w", name, err))
		}
	}
	if c.Batch.MaxRows <= 0 {
		errs = append(errs, fmt.Errorf("batch.max_rows 必须为正"))
	}
	if c.Batch.Previews < 0 || c.Batch.ThumbnailSize <= 0 {
		errs = append(errs, fmt.Errorf("batch.previews 不能为负，batch.thumbnail_size 必须为正"))
	}
	templates := []struct {
		src     string
		allowed []string
	}{
		{c.Naming.Post, []string{"n", "batch"}},
		{c.Naming.PostArchive, []string{"batch"}},
		{c.Naming.Slide, []string{"slide", "group", "batch"}},
		{c.Naming.Group, []string{"group", "batch"}},
		{c.Naming.CarouselArchive, []string{"batch"}},
	}
	for _, tt := range templates {
		if _, err := binding.Compile(tt.src, tt.allowed...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Text 返回模式对应的文本配置。
func (c Config) Text(mode Mode) TextConfig {
	if mode == ModeCarousels {
		return c.Carousel
	}
	return c.Post
}

// Geometry 返回模式对应的排版几何。
func (c Config) Geometry(mode Mode) layout.Geometry {
	t := c.Text(mode)
	return layout.Geometry{
		CanvasWidth:  c.Canvas.Width,
		CanvasHeight: c.Canvas.Height,
		MaxWidth:     t.MaxWidth,
		LineHeight:   t.LineHeight,
		BlockGap:     t.BlockGap,
		AnchorOffset: t.AnchorOffset,
	}
}

// TextColor 返回模式对应的文本颜色。
func (c Config) TextColor(mode Mode) (color.Color, error) {
	return parseColor(c.Text(mode).Color)
}

// ParseMode 解析命令行中的模式名称。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "posts", "post", "":
		return ModePosts, nil
	case "carousels", "carousel", "carrusel", "carruseles":
		return ModeCarousels, nil
	default:
		return "", fmt.Errorf("未知模式 %q（可选 posts 或 carousels）", s)
	}
}

func parseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("无效颜色 %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
