package templator

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// Engine holds named templates. It is not safe to load templates while rendering concurrently;
// load everything up front and render afterwards.
type Engine struct {
	templates map[string]*template.Template
}

func NewEngine() *Engine {
	return &Engine{
		templates: make(map[string]*template.Template),
	}
}

// LoadTemplate parses the file at path and registers it under name, replacing any previous one.
func (e *Engine) LoadTemplate(name, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load template %s from %s: %w", name, path, err)
	}
	if err := e.LoadTemplateString(name, string(content)); err != nil {
		return fmt.Errorf("failed to load template %s from %s: %w", name, path, err)
	}
	return nil
}

// LoadTemplateString parses text and registers it under name, replacing any previous one.
func (e *Engine) LoadTemplateString(name, text string) error {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	e.templates[name] = tmpl
	return nil
}

func (e *Engine) HasTemplate(name string) bool {
	_, exists := e.templates[name]
	return exists
}

func (e *Engine) RenderToBytes(name string, data any) ([]byte, error) {
	tmpl, exists := e.templates[name]
	if !exists {
		return nil, fmt.Errorf("template %s not found", name)
	}

	buf := bytes.NewBuffer([]byte{})
	if err := tmpl.Execute(buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}

	return buf.Bytes(), nil
}

func (e *Engine) RenderToString(name string, data any) (string, error) {
	rendered, err := e.RenderToBytes(name, data)
	if err != nil {
		return "", err
	}
	return string(rendered), nil
}
