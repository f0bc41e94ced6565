package batch

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ByLCY/slidesmith/config"
	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/pack"
	"github.com/ByLCY/slidesmith/record"
	"github.com/ByLCY/slidesmith/renderer"
)

// Group 是共享同一个 carrusel_id 的行，按 slide_numero 升序排列。
type Group struct {
	Key    string
	Slides []Slide
}

// Slide 是分组中的一行。
type Slide struct {
	Row    int // 1 起始的数据行号
	Index  int
	Record record.Record
}

// GroupRows 按分组键归类，键为空的行被丢弃。
// 分组顺序：纯数字键按数值升序在前（数值相同按首次出现），其余按字典序；
// 组内按 slide_numero 稳定排序。
func GroupRows(rows []record.Record) []Group {
	byKey := make(map[string]int)
	var groups []Group
	for i, rec := range rows {
		key := record.Strict.GroupKey(rec)
		if key == "" {
			continue
		}
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, Group{Key: key})
		}
		groups[idx].Slides = append(groups[idx].Slides, Slide{
			Row:    i + 1,
			Index:  record.Strict.SlideIndex(rec),
			Record: rec,
		})
	}
	slices.SortStableFunc(groups, func(a, b Group) int { return CompareKeys(a.Key, b.Key) })
	for i := range groups {
		slices.SortStableFunc(groups[i].Slides, func(a, b Slide) int { return cmp.Compare(a.Index, b.Index) })
	}
	return groups
}

// CompareKeys 比较两个分组键。纯数字键按数值比较且排在非数字键之前，
// 不做整数转换，因此任意长度的数字串都不会溢出。
func CompareKeys(a, b string) int {
	an, bn := record.IsDigits(a), record.IsDigits(b)
	switch {
	case an && bn:
		a, b = trimZeros(a), trimZeros(b)
		if c := cmp.Compare(len(a), len(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case an:
		return -1
	case bn:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

// RunCarousels 为每个分组生成一组幻灯片并单独打包，再把所有分组包汇总为一个压缩包。
// 与单图流程不同，主文本为空的幻灯片照常生成。
func RunCarousels(in Input, r renderer.Renderer, opts Options) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tmpl, err := compileNames(opts.Config.Naming)
	if err != nil {
		return nil, err
	}
	s, err := newSession(opts, config.ModeCarousels)
	if err != nil {
		return nil, err
	}
	defer s.cleanup()

	groups := GroupRows(in.Rows)
	archiveDir := filepath.Join(s.dir, "archives")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var archives []string
	used := make(map[string]bool)
	for gi, g := range groups {
		name, err := tmpl.group.Execute(map[string]string{"group": g.Key, "batch": s.short})
		if err != nil {
			for _, sl := range g.Slides {
				s.skip(sl.Row, "", fmt.Errorf("分组 %q 命名失败: %w", g.Key, err))
			}
			continue
		}
		if unique := uniqueName(name, used); unique != name {
			s.log.Warn("分组压缩包重名，已改名", "group", g.Key, "archive", unique)
			name = unique
		}

		files := renderGroup(s, tmpl, r, in, g, fmt.Sprintf("group_%03d", gi))
		data, err := pack.Files(files)
		if err != nil {
			return nil, fmt.Errorf("打包分组 %q 失败: %w", g.Key, err)
		}
		path := filepath.Join(archiveDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("写入分组压缩包失败: %w", err)
		}
		archives = append(archives, path)
		s.log.Debug("分组完成", "group", g.Key, "slides", len(files))
	}

	archive, err := s.publish(tmpl.carouselArchive, archives)
	if err != nil {
		return nil, fmt.Errorf("输出批次失败: %w", err)
	}
	groupCount := len(archives)
	s.res.GroupCount = &groupCount
	s.res.ArchivePath = archive
	s.res.Success = true
	return s.res, nil
}

// uniqueName 在 name 已被占用时于扩展名前追加 _2、_3……，并登记结果。
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		used[name] = true
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

// renderGroup 渲染一个分组的全部幻灯片，返回按渲染顺序去重后的文件路径。
// slide_numero 相同的幻灯片写入同一个文件，后渲染者覆盖，但每次渲染都计入图片数。
func renderGroup(s *session, tmpl names, r renderer.Renderer, in Input, g Group, sub string) []string {
	var files []string
	for _, sl := range g.Slides {
		name, err := tmpl.slide.Execute(map[string]string{
			"slide": strconv.Itoa(sl.Index),
			"group": g.Key,
			"batch": s.short,
		})
		if err != nil {
			s.skip(sl.Row, "", err)
			continue
		}
		text := record.Strict.Text(sl.Record)
		img, plan, err := renderRow(r, in.Template, text)
		if err != nil {
			s.skip(sl.Row, name, err)
			continue
		}
		path, err := s.save(sub, name, img)
		if err != nil {
			s.skip(sl.Row, name, err)
			continue
		}
		files = appendUnique(files, path)
		s.res.ImageCount++
		s.res.Plans = append(s.res.Plans, layout.NamedPlan{Name: g.Key + "/" + name, Plan: plan})
		s.tracePlan(name, plan)
		if sl.Index == 1 {
			s.preview(img)
		}
	}
	return files
}
