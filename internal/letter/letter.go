// Package letter renders warning letters for employees over the absence
// threshold.
package letter

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/jung-kurt/gofpdf"
	"github.com/phillip-england/rekap/internal/attendance"
)

//go:embed templates/surat_panggilan.tmpl
var templatesFS embed.FS

const defaultTemplate = "templates/surat_panggilan.tmpl"

type Config struct {
	// TemplatePath overrides the built-in letter text. Empty uses the default.
	TemplatePath string
	Company      string
	Logo         *Logo
}

type Renderer struct {
	tmpl    *template.Template
	company string
	logo    *Logo
}

func NewRenderer(cfg Config) (*Renderer, error) {
	var (
		src []byte
		err error
	)
	if strings.TrimSpace(cfg.TemplatePath) == "" {
		src, err = templatesFS.ReadFile(defaultTemplate)
	} else {
		src, err = os.ReadFile(cfg.TemplatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("load letter template: %w", err)
	}
	tmpl, err := template.New("letter").Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse letter template: %w", err)
	}
	return &Renderer{tmpl: tmpl, company: strings.TrimSpace(cfg.Company), logo: cfg.Logo}, nil
}

// Text fills the template with ctx.
func (r *Renderer) Text(ctx attendance.LetterContext) (string, error) {
	fields := ctx.Fields()
	fields["COMPANY"] = r.company
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, fields); err != nil {
		return "", fmt.Errorf("render letter for %s: %w", ctx.EmployeeID, err)
	}
	return buf.String(), nil
}

// Render writes the letter for ctx as a single A4 PDF. The first line of the
// template is the heading.
func (r *Renderer) Render(w io.Writer, ctx attendance.LetterContext) error {
	text, err := r.Text(ctx)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(25, 20, 25)
	pdf.SetTitle("Surat Panggilan "+ctx.EmployeeID, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if r.logo != nil {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("letterhead", opts, bytes.NewReader(r.logo.PNG))
		pdf.ImageOptions("letterhead", 25, 15, 40, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	heading := true
	for _, line := range lines {
		if heading {
			if strings.TrimSpace(line) == "" {
				continue
			}
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 8, tr(strings.TrimSpace(line)), "", 1, "C", false, 0, "")
			pdf.SetFont("Arial", "", 11)
			heading = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 6, tr(line), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write letter pdf for %s: %w", ctx.EmployeeID, err)
	}
	return nil
}
