package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrTemplateNotFound indicates the workbook template could not be read.
	ErrTemplateNotFound = errors.New("export: template not found")
	// ErrTemplateMismatch indicates the workbook does not match the cell map.
	ErrTemplateMismatch = errors.New("export: template does not match cell map")
)

// Template is a validated workbook template. It is immutable; every render
// opens its own copy.
type Template struct {
	data  []byte
	cells CellMap
}

// Cells returns the map the template was validated against.
func (t *Template) Cells() CellMap {
	return t.cells
}

// LoadTemplate validates raw workbook bytes against the cell map.
func LoadTemplate(data []byte, cells CellMap) (*Template, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty template", ErrTemplateNotFound)
	}
	if err := cells.Validate(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrTemplateMismatch, err)
	}
	defer func() { _ = f.Close() }()

	idx, err := f.GetSheetIndex(cells.Sheet)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q missing", ErrTemplateMismatch, cells.Sheet)
	}
	for ref, want := range cells.Labels {
		got, err := f.GetCellValue(cells.Sheet, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrTemplateMismatch, ref, err)
		}
		if strings.TrimSpace(got) != want {
			return nil, fmt.Errorf("%w: %s is %q, want %q", ErrTemplateMismatch, ref, got, want)
		}
	}
	return &Template{data: data, cells: cells}, nil
}

func (t *Template) open() (*excelize.File, error) {
	return excelize.OpenReader(bytes.NewReader(t.data))
}

// TemplateLoader reads and validates the template file once and shares the
// result between concurrent callers.
type TemplateLoader struct {
	path  string
	cells CellMap
	group singleflight.Group

	mu     sync.RWMutex
	cached *Template
}

// NewTemplateLoader constructs a loader for the file at path.
func NewTemplateLoader(path string, cells CellMap) *TemplateLoader {
	return &TemplateLoader{path: path, cells: cells}
}

// Path returns the template location.
func (l *TemplateLoader) Path() string {
	return l.path
}

// Load returns the validated template, reading it on first use. Failures are
// not cached so a fixed file is picked up on the next call.
func (l *TemplateLoader) Load(ctx context.Context) (*Template, error) {
	l.mu.RLock()
	tpl := l.cached
	l.mu.RUnlock()
	if tpl != nil {
		return tpl, nil
	}
	ch := l.group.DoChan(l.path, func() (any, error) {
		data, err := os.ReadFile(l.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, l.path)
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, l.path, err)
		}
		tpl, err := LoadTemplate(data, l.cells)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cached = tpl
		l.mu.Unlock()
		return tpl, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Template), nil
	}
}

// Reset drops the cached template.
func (l *TemplateLoader) Reset() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

// NewBlankTemplate builds a minimal workbook that satisfies cells, with the
// header captions of the production template. It backs tests and the
// template bootstrap command.
func NewBlankTemplate(cells CellMap) ([]byte, error) {
	if err := cells.Validate(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), cells.Sheet); err != nil {
		return nil, fmt.Errorf("export: name sheet: %w", err)
	}
	for ref, text := range cells.Labels {
		if err := f.SetCellStr(cells.Sheet, ref, text); err != nil {
			return nil, fmt.Errorf("export: label %s: %w", ref, err)
		}
	}
	headerRow := cells.Table.StartRow - 1
	if headerRow >= 1 {
		captions := []struct{ col, text string }{
			{cells.Table.Part, "Part #"},
			{cells.Table.Description, "Description"},
			{cells.Table.Qty, "Qty"},
			{cells.Table.UnitPrice, "Unit Price"},
			{cells.Table.UOM, "UOM"},
			{cells.Table.Total, "Total"},
		}
		for _, c := range captions {
			ref := cell(c.col, headerRow)
			if _, ok := cells.Labels[ref]; ok {
				continue
			}
			if err := f.SetCellStr(cells.Sheet, ref, c.text); err != nil {
				return nil, fmt.Errorf("export: caption %s: %w", ref, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write template: %w", err)
	}
	return buf.Bytes(), nil
}
