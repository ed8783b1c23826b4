package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// CatalogRow is one product line in a rendered catalog report
type CatalogRow struct {
	Name        string
	Description string
	Category    string
	Price       string
	Status      string
	CreatedAt   time.Time
}

// CatalogReport is the data rendered into the catalog report template
type CatalogReport struct {
	Title       string
	GeneratedAt time.Time
	Rows        []CatalogRow
	Total       int
	Published   int
	Paused      int
}

var catalogTemplate = template.Must(template.New("catalog").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04 MST")
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; }
  h1 { font-size: 20px; margin-bottom: 2px; }
  .meta { color: #666; margin-bottom: 16px; }
  table { width: 100%; border-collapse: collapse; }
  th { text-align: left; border-bottom: 2px solid #333; padding: 6px 8px; }
  td { border-bottom: 1px solid #ddd; padding: 6px 8px; vertical-align: top; }
  td.price { text-align: right; white-space: nowrap; }
  .status-paused { color: #a05a00; }
  .summary { margin-top: 14px; color: #444; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<div class="meta">Generated {{ datetime .GeneratedAt }}</div>
<table>
  <thead>
    <tr><th>Name</th><th>Category</th><th>Status</th><th>Price</th><th>Added</th></tr>
  </thead>
  <tbody>
  {{ range .Rows }}
    <tr>
      <td>{{ .Name }}</td>
      <td>{{ .Category }}</td>
      <td{{ if eq .Status "paused" }} class="status-paused"{{ end }}>{{ .Status }}</td>
      <td class="price">{{ .Price }}</td>
      <td>{{ date .CreatedAt }}</td>
    </tr>
  {{ end }}
  </tbody>
</table>
<div class="summary">{{ .Total }} products ({{ .Published }} published, {{ .Paused }} paused)</div>
</body>
</html>`))

// RenderCatalogHTML renders the catalog report to HTML for PDF printing
func RenderCatalogHTML(report CatalogReport) (string, error) {
	var buf bytes.Buffer
	if err := catalogTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("failed to render catalog template: %w", err)
	}
	return buf.String(), nil
}
