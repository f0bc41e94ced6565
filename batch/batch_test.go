package batch

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/image/font/basicfont"

	"github.com/ByLCY/slidesmith/config"
	"github.com/ByLCY/slidesmith/layout"
	"github.com/ByLCY/slidesmith/logger"
	"github.com/ByLCY/slidesmith/record"
	"github.com/ByLCY/slidesmith/renderer/raster"
)

// stubRenderer 复制模板并记录收到的文本，不绘制任何内容。
type stubRenderer struct {
	mu      sync.Mutex
	failOn  string
	panicOn string
	calls   []record.Text
}

func (s *stubRenderer) Render(tpl image.Image, text record.Text) (image.Image, layout.Plan, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.failOn != "" && text.Primary == s.failOn {
		return nil, layout.Plan{}, fmt.Errorf("stub failure")
	}
	if s.panicOn != "" && text.Primary == s.panicOn {
		panic("stub panic")
	}
	img := image.NewNRGBA(tpl.Bounds())
	draw.Draw(img, img.Bounds(), tpl, tpl.Bounds().Min, draw.Src)
	block := layout.TextBlock{Lines: []string{text.Primary}, LineHeight: 70}
	return img, layout.Plan{Block1: block}, nil
}

func testOptions(t *testing.T) Options {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.ScratchDir = t.TempDir()
	return Options{Config: cfg, Logger: logger.Discard()}
}

func testTemplate() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 108, 135))
}

func postRows(texts ...string) []record.Record {
	rows := make([]record.Record, 0, len(texts))
	for _, s := range texts {
		rows = append(rows, record.FromPairs("texto_linea1", s))
	}
	return rows
}

// zipEntries 返回压缩包内条目名称（按写入顺序）及内容。
func zipEntries(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	contents := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		names = append(names, f.Name)
		contents[f.Name] = b
	}
	return names, contents
}

func readArchive(t *testing.T, path string) ([]string, map[string][]byte) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	return zipEntries(t, data)
}

func TestRunPostsCounterIncludesSkippedRows(t *testing.T) {
	opts := testOptions(t)
	rows := []record.Record{
		record.FromPairs("texto_linea1", "   ", "texto_linea2", "ignored"),
		record.FromPairs("texto_linea1", "Hola"),
	}
	res, err := RunPosts(Input{Rows: rows, Template: testTemplate()}, &stubRenderer{}, opts)
	if err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	names, _ := readArchive(t, res.ArchivePath)
	if len(names) != 1 || names[0] != "Post_2.png" {
		t.Fatalf("expected only Post_2.png, got %v", names)
	}
	if res.ImageCount != 1 || len(res.Skipped) != 1 || !res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.GroupCount != nil {
		t.Fatalf("posts must not report a group count")
	}
	base := filepath.Base(res.ArchivePath)
	if base != "Posts_"+res.BatchID[:8]+".zip" {
		t.Fatalf("unexpected archive name %q", base)
	}
}

func TestRunPostsCapsRows(t *testing.T) {
	opts := testOptions(t)
	texts := make([]string, 305)
	for i := range texts {
		texts[i] = fmt.Sprintf("row %d", i+1)
	}
	r := &stubRenderer{}
	res, err := RunPosts(Input{Rows: postRows(texts...), Template: testTemplate()}, r, opts)
	if err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	if res.ImageCount != 300 || len(r.calls) != 300 {
		t.Fatalf("expected 300 images, got count=%d calls=%d", res.ImageCount, len(r.calls))
	}
	names, _ := readArchive(t, res.ArchivePath)
	if len(names) != 300 || names[299] != "Post_300.png" {
		t.Fatalf("unexpected archive entries: %d, last=%q", len(names), names[len(names)-1])
	}
	if len(res.Previews) != 3 {
		t.Fatalf("expected 3 previews, got %d", len(res.Previews))
	}
	for _, p := range res.Previews {
		if !strings.HasPrefix(p, "data:image/png;base64,") {
			t.Fatalf("unexpected preview encoding %.40q", p)
		}
	}
	if len(res.Plans) != 300 || res.Plans[0].Name != "Post_1.png" {
		t.Fatalf("unexpected plans: %d", len(res.Plans))
	}
}

func TestRunPostsIsolatesRowFailures(t *testing.T) {
	opts := testOptions(t)
	r := &stubRenderer{failOn: "b", panicOn: "c"}
	res, err := RunPosts(Input{Rows: postRows("a", "b", "c", "d"), Template: testTemplate()}, r, opts)
	if err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	names, _ := readArchive(t, res.ArchivePath)
	if strings.Join(names, ",") != "Post_1.png,Post_4.png" {
		t.Fatalf("unexpected entries %v", names)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %+v", res.Skipped)
	}
	if res.Skipped[0].Row != 2 || res.Skipped[1].Row != 3 || !strings.Contains(res.Skipped[1].Err.Error(), "panic") {
		t.Fatalf("unexpected skip reasons: %+v", res.Skipped)
	}
}

func TestRunPostsUsesPositionalFallback(t *testing.T) {
	opts := testOptions(t)
	r := &stubRenderer{}
	rows := []record.Record{record.FromPairs("Titulo", " Primera columna ", "linea2", "abajo")}
	if _, err := RunPosts(Input{Rows: rows, Template: testTemplate()}, r, opts); err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	if len(r.calls) != 1 || r.calls[0] != (record.Text{Primary: "Primera columna", Secondary: "abajo"}) {
		t.Fatalf("unexpected resolved text %+v", r.calls)
	}
}

func carouselRow(id, slide, primary, secondary string) record.Record {
	return record.FromPairs("carrusel_id", id, "slide_numero", slide, "texto_linea1", primary, "texto_linea2", secondary)
}

func TestRunCarouselsPackagesGroups(t *testing.T) {
	opts := testOptions(t)
	rows := []record.Record{
		carouselRow("1", "1", "A", ""),
		carouselRow("1", "2", "B", ""),
		carouselRow("2", "1", "C", ""),
		carouselRow("", "1", "dropped", ""),
	}
	r := &stubRenderer{}
	res, err := RunCarousels(Input{Rows: rows, Template: testTemplate()}, r, opts)
	if err != nil {
		t.Fatalf("RunCarousels: %v", err)
	}
	names, contents := readArchive(t, res.ArchivePath)
	if strings.Join(names, ",") != "carousel_01.zip,carousel_02.zip" {
		t.Fatalf("unexpected master entries %v", names)
	}
	first, _ := zipEntries(t, contents["carousel_01.zip"])
	second, _ := zipEntries(t, contents["carousel_02.zip"])
	if strings.Join(first, ",") != "slide_1.png,slide_2.png" || strings.Join(second, ",") != "slide_1.png" {
		t.Fatalf("unexpected group entries %v / %v", first, second)
	}
	if res.ImageCount != 3 || res.GroupCount == nil || *res.GroupCount != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if len(res.Previews) != 2 {
		t.Fatalf("previews come only from slide 1, got %d", len(res.Previews))
	}
	if filepath.Base(res.ArchivePath) != "Carousels_"+res.BatchID[:8]+".zip" {
		t.Fatalf("unexpected archive name %q", res.ArchivePath)
	}
}

func TestRunCarouselsRendersEmptyPrimaryWithoutFallback(t *testing.T) {
	opts := testOptions(t)
	rows := []record.Record{
		carouselRow("7", "1", "", "solo abajo"),
		carouselRow("7", "1", "otra", ""),
	}
	r := &stubRenderer{}
	res, err := RunCarousels(Input{Rows: rows, Template: testTemplate()}, r, opts)
	if err != nil {
		t.Fatalf("RunCarousels: %v", err)
	}
	if len(r.calls) != 2 || r.calls[0] != (record.Text{Secondary: "solo abajo"}) {
		t.Fatalf("carousel rows must not use the first column: %+v", r.calls)
	}
	_, contents := readArchive(t, res.ArchivePath)
	inner, _ := zipEntries(t, contents["carousel_07.zip"])
	if len(inner) != 1 || inner[0] != "slide_1.png" {
		t.Fatalf("duplicate slide index should overwrite, got %v", inner)
	}
	if res.ImageCount != 2 {
		t.Fatalf("every render counts, got %d", res.ImageCount)
	}
}

func TestRunCarouselsKeepsEveryGroupArchive(t *testing.T) {
	opts := testOptions(t)
	rows := []record.Record{
		carouselRow("a/b", "1", "A", ""),
		carouselRow("x/b", "1", "X", ""),
		carouselRow("1", "1", "uno", ""),
		carouselRow("01", "1", "cero uno", ""),
	}
	res, err := RunCarousels(Input{Rows: rows, Template: testTemplate()}, &stubRenderer{}, opts)
	if err != nil {
		t.Fatalf("RunCarousels: %v", err)
	}
	names, contents := readArchive(t, res.ArchivePath)
	want := "carousel_01.zip,carousel_01_2.zip,carousel_a_b.zip,carousel_x_b.zip"
	if strings.Join(names, ",") != want {
		t.Fatalf("got %v want %s", names, want)
	}
	total := 0
	for _, n := range names {
		inner, _ := zipEntries(t, contents[n])
		total += len(inner)
	}
	if total != res.ImageCount || res.ImageCount != 4 || *res.GroupCount != 4 {
		t.Fatalf("counts must match archive contents: images=%d groups=%d packed=%d", res.ImageCount, *res.GroupCount, total)
	}
}

func TestRunPostsTracesPlacedLines(t *testing.T) {
	opts := testOptions(t)
	var buf bytes.Buffer
	opts.Logger = slog.New(logger.NewHandler(&buf, logger.LevelTrace))
	if _, err := RunPosts(Input{Rows: postRows("Hola"), Template: testTemplate()}, &stubRenderer{}, opts); err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[TRACE]") || !strings.Contains(out, "content=Hola") {
		t.Fatalf("expected a TRACE line per placed line, got:\n%s", out)
	}
}

func TestGroupRowsOrdering(t *testing.T) {
	cases := []struct {
		keys []string
		want string
	}{
		{[]string{"2", "10", "1"}, "1,2,10"},
		{[]string{"b", "a2", "a10"}, "a10,a2,b"},
		{[]string{"x", "3", "01", "1"}, "01,1,3,x"},
		{[]string{"99999999999999999999", "5"}, "5,99999999999999999999"},
	}
	for _, c := range cases {
		var rows []record.Record
		for _, k := range c.keys {
			rows = append(rows, carouselRow(k, "1", "t", ""))
		}
		var got []string
		for _, g := range GroupRows(rows) {
			got = append(got, g.Key)
		}
		if strings.Join(got, ",") != c.want {
			t.Fatalf("keys %v: got=%v want=%s", c.keys, got, c.want)
		}
	}
}

func TestGroupRowsStableSlides(t *testing.T) {
	rows := []record.Record{
		carouselRow("1", "2", "A", ""),
		carouselRow("1", "1", "B", ""),
		carouselRow("1", "2", "C", ""),
		carouselRow("1", "x", "D", ""),
		carouselRow(" ", "1", "E", ""),
	}
	groups := GroupRows(rows)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	var got []string
	for _, s := range groups[0].Slides {
		v, _ := s.Record.Get("texto_linea1")
		got = append(got, v)
	}
	if strings.Join(got, "") != "DBAC" {
		t.Fatalf("unexpected slide order %v", got)
	}
}

func TestScratchRemovedOnSuccessAndFailure(t *testing.T) {
	opts := testOptions(t)
	if _, err := RunPosts(Input{Rows: postRows("a"), Template: testTemplate()}, &stubRenderer{}, opts); err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	assertEmptyDir(t, opts.Config.Paths.ScratchDir)

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.Config.Paths.OutputDir = blocker
	if _, err := RunCarousels(Input{Rows: []record.Record{carouselRow("1", "1", "a", "")}, Template: testTemplate()}, &stubRenderer{}, opts); err == nil {
		t.Fatalf("expected publish failure")
	}
	assertEmptyDir(t, opts.Config.Paths.ScratchDir)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch not cleaned: %v", entries)
	}
}

func TestConcurrentBatchesAreIsolated(t *testing.T) {
	opts := testOptions(t)
	tpl := testTemplate()
	const n = 4
	results := make([]*Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			texts := make([]string, i+1)
			for j := range texts {
				texts[j] = fmt.Sprintf("batch %d row %d", i, j)
			}
			results[i], errs[i] = RunPosts(Input{Rows: postRows(texts...), Template: tpl}, &stubRenderer{}, opts)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("batch %d: %v", i, errs[i])
		}
		if seen[results[i].ArchivePath] {
			t.Fatalf("archive path reused: %s", results[i].ArchivePath)
		}
		seen[results[i].ArchivePath] = true
		names, _ := readArchive(t, results[i].ArchivePath)
		if len(names) != i+1 {
			t.Fatalf("batch %d: expected %d entries, got %d", i, i+1, len(names))
		}
	}
	assertEmptyDir(t, opts.Config.Paths.ScratchDir)
}

func TestRunRequiresTemplate(t *testing.T) {
	opts := testOptions(t)
	if _, err := RunPosts(Input{Rows: postRows("a")}, &stubRenderer{}, opts); !errors.Is(err, ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}
	if _, err := RunCarousels(Input{}, &stubRenderer{}, opts); !errors.Is(err, ErrInputMissing) {
		t.Fatalf("expected ErrInputMissing, got %v", err)
	}
}

func TestRunPostsWithRasterRenderer(t *testing.T) {
	opts := testOptions(t)
	g := opts.Config.Geometry(config.ModePosts)
	r := raster.NewRenderer(basicfont.Face7x13, raster.Options{Geometry: g})
	tpl := image.NewNRGBA(image.Rect(0, 0, g.CanvasWidth, g.CanvasHeight))
	res, err := RunPosts(Input{Rows: postRows("Hola mundo"), Template: tpl}, r, opts)
	if err != nil {
		t.Fatalf("RunPosts: %v", err)
	}
	if res.ImageCount != 1 || len(res.Plans) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	// 单行：start_y = 675 - 70/2 + 35
	if res.Plans[0].Plan.StartY != 675 {
		t.Fatalf("unexpected start_y %d", res.Plans[0].Plan.StartY)
	}
}

func TestLoadInputFallsBack(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "posts.csv")
	if err := os.WriteFile(csvPath, []byte("texto_linea1;texto_linea2\nHola;Mundo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tplPath := filepath.Join(dir, "template.png")
	f, err := os.Create(tplPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := raster.EncodePNG(f, testTemplate()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := config.Default()
	cfg.Paths.FallbackCSV = csvPath
	cfg.Paths.FallbackTemplate = tplPath
	in, err := LoadInput(filepath.Join(dir, "missing.csv"), "", config.ModePosts, cfg, logger.Discard())
	if err != nil {
		t.Fatalf("LoadInput: %v", err)
	}
	if len(in.Rows) != 1 || in.Template == nil {
		t.Fatalf("unexpected input: %d rows", len(in.Rows))
	}
	if v, _ := in.Rows[0].Get("texto_linea2"); v != "Mundo" {
		t.Fatalf("unexpected row value %q", v)
	}

	if _, err := LoadInput("", "", config.ModeCarousels, cfg, logger.Discard()); !errors.Is(err, ErrInputMissing) {
		t.Fatalf("carousel mode has no fallback csv, expected ErrInputMissing, got %v", err)
	}
}
