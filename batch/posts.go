package batch

import (
	"fmt"
	"strconv"

	"github.com/ByLCY/slidesmith/config"
	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/record"
	"github.com/ByLCY/slidesmith/renderer"
)

// RunPosts 逐行生成单图并打包为一个压缩包。
//
// 计数器在检查主文本之前递增，因此被跳过的行也会占用编号：
// 第一行为空时，第二行输出为 Post_2.png。计数超过 batch.max_rows 后停止读取。
func RunPosts(in Input, r renderer.Renderer, opts Options) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tmpl, err := compileNames(opts.Config.Naming)
	if err != nil {
		return nil, err
	}
	s, err := newSession(opts, config.ModePosts)
	if err != nil {
		return nil, err
	}
	defer s.cleanup()

	maxRows := s.cfg.Batch.MaxRows
	var files []string
	used := make(map[string]bool)
	count := 0
	for _, rec := range in.Rows {
		count++
		if count > maxRows {
			s.log.Warn("达到行数上限，停止读取", "max_rows", maxRows)
			break
		}
		text := record.Lenient.Text(rec)
		if text.Primary == "" {
			s.skip(count, "", errEmptyPrimary)
			continue
		}
		name, err := tmpl.post.Execute(map[string]string{"n": strconv.Itoa(count), "batch": s.short})
		if err != nil {
			s.skip(count, "", err)
			continue
		}
		img, plan, err := renderRow(r, in.Template, text)
		if err != nil {
			s.skip(count, name, err)
			continue
		}
		name = uniqueName(name, used)
		path, err := s.save("", name, img)
		if err != nil {
			s.skip(count, name, err)
			continue
		}
		files = appendUnique(files, path)
		s.res.ImageCount++
		s.res.Plans = append(s.res.Plans, layout.NamedPlan{Name: name, Plan: plan})
		s.preview(img)
		s.tracePlan(name, plan)
		s.log.Debug("已生成", "row", count, "name", name, "lines", len(plan.Lines()))
	}

	archive, err := s.publish(tmpl.postArchive, files)
	if err != nil {
		return nil, fmt.Errorf("输出批次失败: %w", err)
	}
	s.res.ArchivePath = archive
	s.res.Success = true
	return s.res, nil
}
