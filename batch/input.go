package batch

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ByLCY/slidesmith/config"
	"github.com/ByLCY/slidesmith/renderer/raster"
	"github.com/ByLCY/slidesmith/table"
)

// LoadInput 读取表格与模板。显式路径不可用时依次尝试配置中的回退路径，
// 找到替代品时继续执行并记录警告；都不可用时返回 ErrInputMissing。
func LoadInput(csvPath, templatePath string, mode config.Mode, cfg config.Config, log *slog.Logger) (Input, error) {
	if log == nil {
		log = slog.Default()
	}
	fallbackCSV := cfg.Paths.FallbackCSV
	if mode == config.ModeCarousels {
		fallbackCSV = cfg.Paths.FallbackCarouselCSV
	}

	csvFile, err := pick("表格", log, csvPath, fallbackCSV)
	if err != nil {
		return Input{}, err
	}
	tplFile, err := pick("模板", log, templatePath, cfg.Paths.FallbackTemplate)
	if err != nil {
		return Input{}, err
	}

	f, err := os.Open(csvFile)
	if err != nil {
		return Input{}, fmt.Errorf("打开表格失败: %w", err)
	}
	defer f.Close()
	rows, err := table.Parse(f, log)
	if err != nil {
		return Input{}, err
	}

	tpl, err := raster.LoadTemplate(tplFile)
	if err != nil {
		return Input{}, err
	}
	if b := tpl.Bounds(); b.Dx() != cfg.Canvas.Width || b.Dy() != cfg.Canvas.Height {
		log.Warn("模板尺寸与画布不一致", "template", tplFile,
			"size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			"canvas", fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height))
	}
	log.Info("输入已加载", "csv", csvFile, "template", tplFile, "rows", len(rows))
	return Input{Rows: rows, Template: tpl}, nil
}

// pick 返回第一个存在的普通文件路径。
func pick(what string, log *slog.Logger, paths ...string) (string, error) {
	for i, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if i > 0 && paths[0] != "" {
			log.Warn("使用回退"+what, "requested", paths[0], "fallback", p)
		}
		return p, nil
	}
	return "", fmt.Errorf("未找到%s: %w", what, ErrInputMissing)
}
