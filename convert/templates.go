package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"scs/ass"
	"scs/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	ScriptType string
	SourceFile string
	Styles     []string
	Events     int
}

func expandTemplate(doc *ass.Document, src string, name config.TemplateFieldName, field string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Title:      doc.Info["Title"],
		ScriptType: doc.Info["ScriptType"],
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Styles:     doc.StyleOrder,
		Events:     len(doc.Events),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
