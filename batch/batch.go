// Package batch 实现两种批量生成流程：逐行生成单图（posts）与按分组生成轮播（carousels）。
//
// 每个批次拥有独立的标识与私有临时目录，批次之间不共享任何可变状态；
// 模板位图只读，可以被多个并发批次共享。
package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/slidesmith/atomicfile"
	"github.com/ByLCY/slidesmith/binding"
	"github.com/ByLCY/slidesmith/config"
	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/logger"
	"github.com/ByLCY/slidesmith/pack"
	"github.com/ByLCY/slidesmith/record"
	"github.com/ByLCY/slidesmith/renderer"
	"github.com/ByLCY/slidesmith/renderer/raster"
)

// ErrInputMissing 表示没有可用的表格或模板（包括回退路径）。
var ErrInputMissing = errors.New("batch: 缺少输入")

var errEmptyPrimary = errors.New("主文本为空")

// Options 是一次批次运行的参数。
type Options struct {
	Config config.Config
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Input 是批次的输入：已解析的行与模板位图。
type Input struct {
	Rows     []record.Record
	Template image.Image
}

func (in Input) validate() error {
	if in.Template == nil {
		return fmt.Errorf("模板为空: %w", ErrInputMissing)
	}
	return nil
}

// RowResult 记录被跳过的一行及原因，只用于诊断。
type RowResult struct {
	Row  int    // 1 起始的数据行号
	Name string // 已分配的输出名称，可能为空
	Err  error
}

// Result 是批次对外可见的摘要。
type Result struct {
	Success     bool        `json:"success"`
	Mode        config.Mode `json:"mode"`
	BatchID     string      `json:"batch_id"`
	ImageCount  int         `json:"count"`
	GroupCount  *int        `json:"carousels_count,omitempty"`
	ArchivePath string      `json:"archive"`
	Previews    []string    `json:"previews"`

	Plans   []layout.NamedPlan `json:"-"`
	Skipped []RowResult        `json:"-"`
}

// names 是编译后的输出命名模板。
type names struct {
	post            *binding.Template
	postArchive     *binding.Template
	slide           *binding.Template
	group           *binding.Template
	carouselArchive *binding.Template
}

func compileNames(n config.NamingConfig) (names, error) {
	var out names
	var err error
	if out.post, err = binding.Compile(n.Post, "n", "batch"); err != nil {
		return names{}, err
	}
	if out.postArchive, err = binding.Compile(n.PostArchive, "batch"); err != nil {
		return names{}, err
	}
	if out.slide, err = binding.Compile(n.Slide, "slide", "group", "batch"); err != nil {
		return names{}, err
	}
	if out.group, err = binding.Compile(n.Group, "group", "batch"); err != nil {
		return names{}, err
	}
	if out.carouselArchive, err = binding.Compile(n.CarouselArchive, "batch"); err != nil {
		return names{}, err
	}
	return out, nil
}

// session 是单个批次的身份与私有临时目录。
type session struct {
	id    string
	short string // id 的前 8 位，用于文件名
	dir   string
	cfg   config.Config
	log   *slog.Logger
	res   *Result
}

func newSession(opts Options, mode config.Mode) (*session, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	if cfg.Paths.ScratchDir != "" {
		if err := os.MkdirAll(cfg.Paths.ScratchDir, 0o755); err != nil {
			return nil, fmt.Errorf("创建临时根目录失败: %w", err)
		}
	}
	dir, err := os.MkdirTemp(cfg.Paths.ScratchDir, "slidesmith-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("创建批次临时目录失败: %w", err)
	}
	log := opts.logger().With("batch", id[:8], "mode", string(mode))
	return &session{
		id:    id,
		short: id[:8],
		dir:   dir,
		cfg:   cfg,
		log:   log,
		res:   &Result{Mode: mode, BatchID: id, Previews: []string{}},
	}, nil
}

func newID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("生成批次标识失败: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// cleanup 删除批次临时目录，成功与失败路径都会调用。
func (s *session) cleanup() {
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.Warn("清理临时目录失败", "dir", s.dir, "error", err)
	}
}

// skip 记录被跳过的行。
func (s *session) skip(row int, name string, err error) {
	s.res.Skipped = append(s.res.Skipped, RowResult{Row: row, Name: name, Err: err})
	s.log.Warn("跳过该行", "row", row, "name", name, "reason", err)
}

// save 将图片编码为 PNG 写入临时目录下的 sub 子目录，返回文件路径。
func (s *session) save(sub, name string, img image.Image) (string, error) {
	dir := filepath.Join(s.dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	if err := raster.EncodePNG(f, img); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	return path, nil
}

// tracePlan 以 TRACE 级别逐行记录绘制坐标。
func (s *session) tracePlan(name string, plan layout.Plan) {
	for _, ln := range plan.Lines() {
		logger.Trace(s.log, "绘制行", "name", name, "block", ln.Block, "x", ln.X, "y", ln.Y, "content", ln.Content)
	}
}

// preview 在预览数量未满时为 img 生成缩略图。
func (s *session) preview(img image.Image) {
	if len(s.res.Previews) >= s.cfg.Batch.Previews {
		return
	}
	uri, err := raster.PreviewDataURI(img, s.cfg.Batch.ThumbnailSize)
	if err != nil {
		s.log.Warn("生成预览失败", "error", err)
		return
	}
	s.res.Previews = append(s.res.Previews, uri)
}

// publish 将 files 打包并原子地写入输出目录。
func (s *session) publish(tmpl *binding.Template, files []string) (string, error) {
	name, err := tmpl.Execute(map[string]string{"batch": s.short})
	if err != nil {
		return "", err
	}
	data, err := pack.Files(files)
	if err != nil {
		return "", fmt.Errorf("打包失败: %w", err)
	}
	outDir := s.cfg.Paths.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	path := filepath.Join(outDir, name)
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入压缩包 %s 失败: %w", name, err)
	}
	s.log.Info("批次完成", "archive", path, "count", s.res.ImageCount)
	return path, nil
}

// renderRow 渲染单行，并把 panic 转换为该行的错误。
func renderRow(r renderer.Renderer, tpl image.Image, text record.Text) (img image.Image, plan layout.Plan, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("渲染时发生 panic: %v", rec)
		}
	}()
	return r.Render(tpl, text)
}

// appendUnique 追加 path，已存在时保持原位置。
func appendUnique(list []string, path string) []string {
	for _, p := range list {
		if p == path {
			return list
		}
	}
	return append(list, path)
}
