package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/slidesmith/batch"
	"github.com/ByLCY/slidesmith/config"
	"github.com/ByLCY/slidesmith/fonts"
	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/logger"
	canvasrenderer "github.com/ByLCY/slidesmith/renderer/canvas"
	"github.com/ByLCY/slidesmith/renderer/raster"
)

// cliOptions 是命令行参数；为空的字段使用配置文件中的值。
type cliOptions struct {
	mode     string
	csv      string
	template string
	font     string
	config   string
	out      string
	proof    string
	debug    string
	logLevel string
	logFile  string
}

func main() {
	var o cliOptions
	flag.StringVar(&o.mode, "mode", "posts", "批次类型：posts 或 carousels")
	flag.StringVar(&o.csv, "csv", "", "CSV 表格路径")
	flag.StringVar(&o.template, "template", "", "模板图片路径")
	flag.StringVar(&o.font, "font", "", "字体文件路径（覆盖配置）")
	flag.StringVar(&o.config, "config", "", "TOML 配置文件路径")
	flag.StringVar(&o.out, "out", "", "压缩包输出目录（覆盖配置）")
	flag.StringVar(&o.proof, "proof", "", "排版校样 PDF 输出路径")
	flag.StringVar(&o.debug, "debug", "", "排版调试 JSON 输出路径")
	flag.StringVar(&o.logLevel, "log-level", "", "日志级别：trace/debug/info/warn/error/fail")
	flag.StringVar(&o.logFile, "log-file", "", "日志文件路径，为空时输出到 stderr")
	flag.Parse()

	if err := run(o, os.Stdout); err != nil {
		writeJSON(os.Stdout, map[string]any{"success": false, "error": err.Error()})
		os.Exit(1)
	}
}

// run 串联配置、输入加载、批次生成与可选的调试输出。
func run(o cliOptions, stdout io.Writer) error {
	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	if o.out != "" {
		cfg.Paths.OutputDir = o.out
	}
	if o.font != "" {
		cfg.Paths.Font = o.font
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}

	log, closer := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File, MaxSizeMB: cfg.Log.MaxSizeMB})
	defer closer.Close()

	mode, err := config.ParseMode(o.mode)
	if err != nil {
		return err
	}
	textColor, err := cfg.TextColor(mode)
	if err != nil {
		return err
	}
	text := cfg.Text(mode)
	src := fonts.Resolve(log, cfg.Paths.Font)
	log.Info("字体已加载", "font", src.Name, "substituted", src.Substituted)
	face := fonts.FaceOrDefault(src, text.FontSize, log)
	r := raster.NewRenderer(face, raster.Options{Geometry: cfg.Geometry(mode), Color: textColor})

	in, err := batch.LoadInput(o.csv, o.template, mode, cfg, log)
	if err != nil {
		return err
	}

	opts := batch.Options{Config: cfg, Logger: log}
	var res *batch.Result
	if mode == config.ModeCarousels {
		res, err = batch.RunCarousels(in, r, opts)
	} else {
		res, err = batch.RunPosts(in, r, opts)
	}
	if err != nil {
		logger.Fail(log, "批次失败", "mode", string(mode), "error", err)
		return fmt.Errorf("生成失败: %w", err)
	}

	if o.debug != "" {
		if err := writeDebug(res.Plans, o.debug); err != nil {
			return err
		}
	}
	if o.proof != "" {
		if err := writeProof(res.Plans, cfg, mode, src, textColor, o.proof, log); err != nil {
			return err
		}
	}
	writeJSON(stdout, res)
	return nil
}

func writeDebug(plans []layout.NamedPlan, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(plans, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func writeProof(plans []layout.NamedPlan, cfg config.Config, mode config.Mode, src fonts.Source, c color.Color, proofPath string, log *slog.Logger) error {
	if len(plans) == 0 {
		log.Warn("没有可输出的版面，跳过校样")
		return nil
	}
	g := cfg.Geometry(mode)
	pages := make([]canvasrenderer.Page, 0, len(plans))
	for _, p := range plans {
		pages = append(pages, canvasrenderer.Page{Name: p.Name, Plan: p.Plan, Geometry: g, FontSize: cfg.Text(mode).FontSize})
	}
	r := canvasrenderer.NewRenderer(canvasrenderer.Options{Font: src.Data, TextColor: layoutColor(c)})
	pdfBytes, err := r.Render(pages)
	if err != nil {
		return fmt.Errorf("渲染校样失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(proofPath), 0o755); err != nil {
		return fmt.Errorf("创建校样目录失败: %w", err)
	}
	if err := os.WriteFile(proofPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入校样失败: %w", err)
	}
	return nil
}

func layoutColor(c color.Color) layout.Color {
	r, g, b, _ := c.RGBA()
	return layout.Color{R: int(r >> 8), G: int(g >> 8), B: int(b >> 8)}
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "输出结果失败: %v\n", err)
	}
}
