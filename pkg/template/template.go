package template

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	exts = []string{".html", ".tmpl", ".tpl"}
)

// TemplStore holds one template per file. Every template under shared/ is
// parsed into each of them so partials can be used from any page.
type TemplStore struct {
	root      *template.Template
	templates map[string]*template.Template
}

// NewTemplStoreFS parses the templates in fsys. funcs are available to every template.
func NewTemplStoreFS(fsys fs.FS, funcs template.FuncMap) (*TemplStore, error) {
	rootTempl := template.New("root").Funcs(funcs)

	sourceRootFn := func(fsys fs.FS, p string, key string) error {
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		rootTempl, err = rootTempl.New(key).Parse(string(content))
		return err
	}

	if _, err := fs.Stat(fsys, "shared"); err == nil {
		if err := sourceTemplates(fsys, "shared", exts, sourceRootFn); err != nil {
			return nil, fmt.Errorf("parse shared templates: %w", err)
		}
	}

	templates := make(map[string]*template.Template)

	sourceTemplsFn := func(fsys fs.FS, p string, key string) error {
		if strings.HasPrefix(key, "shared/") {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		templ, err := rootTempl.Clone()
		if err != nil {
			return err
		}
		templates[key], err = templ.New(key).Parse(string(content))
		return err
	}

	if err := sourceTemplates(fsys, ".", exts, sourceTemplsFn); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &TemplStore{root: rootTempl, templates: templates}, nil
}

func NewTemplStore(path string, funcs template.FuncMap) (*TemplStore, error) {
	return NewTemplStoreFS(os.DirFS(path), funcs)
}

func (s *TemplStore) Render(w io.Writer, template string, data interface{}) error {
	templ, ok := s.templates[template]
	if !ok {
		return fmt.Errorf("template %s not found", template)
	}
	return templ.Execute(w, data)
}

func sourceTemplates(fsys fs.FS, base string, exts []string, fn func(fsys fs.FS, path string, key string) error) error {
	return fs.WalkDir(fsys, base, func(p string, d fs.DirEntry, err error) error {
		// do not walk the root directory twice
		if p == "." {
			return nil
		}
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := filepath.Ext(d.Name())
		if !slices.Contains(exts, ext) {
			return nil
		}

		key := strings.TrimSuffix(p, ext)
		return fn(fsys, p, key)
	})
}
