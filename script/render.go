package script

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"text/template"
	"time"
)

//go:embed rayrender.R.tmpl
var rayrenderTemplate string

// CreatedLayout formats the creation stamp in the script header.
const CreatedLayout = "1/2/2006, 3:04:05 PM"

func num(n Number) string { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

func rbool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// Render writes the R script for s, stamped with now.
func Render(w io.Writer, s Settings, now time.Time) error {
	tmpl, err := template.New("rayrender").Funcs(template.FuncMap{
		"num":     num,
		"rbool":   rbool,
		"created": func() string { return now.Format(CreatedLayout) },
	}).Parse(rayrenderTemplate)
	if err != nil {
		return fmt.Errorf("parse script template: %w", err)
	}
	if err := tmpl.Execute(w, s); err != nil {
		return fmt.Errorf("render script: %w", err)
	}
	return nil
}
