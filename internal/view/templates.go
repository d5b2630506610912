// Package view parses the embedded HTML templates.
package view

import (
	"fmt"
	"html/template"
	"io"

	"github.com/shopspring/decimal"

	"github.com/PPA-BE/Orders-At-Peak/internal/money"
	"github.com/PPA-BE/Orders-At-Peak/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"money": money.Format,
		"quantity": func(d decimal.Decimal) string {
			return d.String()
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/preview/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Engine{templates: tpl}, nil
}

// Execute writes the named template to w.
func (e *Engine) Execute(w io.Writer, name string, data any) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	return e.templates.ExecuteTemplate(w, name, data)
}
