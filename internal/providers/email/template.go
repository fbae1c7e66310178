package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const TemplatePriceDrop = "price_drop"

// PriceDropData feeds the price_drop template.
type PriceDropData struct {
	ProductName  string
	CurrentPrice string
	Threshold    string
	Currency     string
}

// Render executes the named template with data.
func Render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name+".html", data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return body.String(), nil
}
