package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Presentation variants.
const (
	VariantTable    = "table"
	VariantCards    = "cards"
	VariantTerminal = "terminal"
)

// Renderer writes a complete replacement for the plane list area. Calling
// it twice with the same rows produces the same output.
type Renderer interface {
	RenderRows(w io.Writer, rows []Row) error
}

// ForVariant returns the renderer for name. Unknown names fall back to Cards.
func ForVariant(name string) Renderer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case VariantTable:
		return Table{}
	case VariantTerminal:
		return Terminal{}
	default:
		return Cards{}
	}
}

const templateSource = `
{{- define "table" -}}
<table class="plane-table">
  <thead>
    <tr>
      <th>Airline</th>
      <th>Flight</th>
      <th>Altitude (ft)</th>
      <th>Distance (nm)</th>
      <th colspan="2">Track Flight</th>
    </tr>
  </thead>
  <tbody>
{{- range . }}
    <tr>
      <td>{{ .Airline }}</td>
      <td>{{ .Flight }}</td>
      <td>{{ .AltitudeDisplay }}</td>
      <td>{{ .DistanceDisplay }}</td>
      <td><a href="{{ .FlightAwareURL }}" target="_blank">FlightAware</a></td>
      <td><a href="{{ .Flightradar24URL }}" target="_blank">Flightradar24</a></td>
    </tr>
{{- end }}
  </tbody>
</table>
{{- end -}}

{{- define "cards" -}}
{{- range . }}
<div class="plane-card" onclick="this.classList.toggle('open')">
  <div class="plane-card-header">
    <span>{{ .Airline }} - {{ .Flight }}</span>
    <span class="toggle-icon">&#9660;</span>
  </div>
  <div class="plane-card-content">
    <p><strong>Airline:</strong> {{ .Airline }}</p>
    <p><strong>Flight:</strong> {{ .Flight }}</p>
    <p><strong>Altitude:</strong> {{ withUnit .AltitudeDisplay "ft" }}</p>
    <p><strong>Distance:</strong> {{ withUnit .DistanceDisplay "nm" }}</p>
    <p><a href="{{ .FlightAwareURL }}" target="_blank">FlightAware</a> | <a href="{{ .Flightradar24URL }}" target="_blank">Flightradar24</a></p>
  </div>
</div>
{{- end }}
{{- end -}}

{{- define "message" -}}
<p>{{ . }}</p>
{{- end -}}
`

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"withUnit": withUnit,
}).Parse(templateSource))

// withUnit appends unit unless the value is Unknown.
func withUnit(value, unit string) string {
	if value == Unknown {
		return value
	}
	return value + " " + unit
}

// Table renders rows as an HTML table with units in the headers.
type Table struct{}

// RenderRows implements Renderer.
func (Table) RenderRows(w io.Writer, rows []Row) error {
	return templates.ExecuteTemplate(w, "table", rows)
}

// Cards renders rows as collapsible HTML cards. Clicking a card toggles its
// "open" class.
type Cards struct{}

// RenderRows implements Renderer.
func (Cards) RenderRows(w io.Writer, rows []Row) error {
	return templates.ExecuteTemplate(w, "cards", rows)
}

// Message writes an informational paragraph.
func Message(w io.Writer, text string) error {
	return templates.ExecuteTemplate(w, "message", text)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Terminal renders rows as a bordered text table.
type Terminal struct{}

// RenderRows implements Renderer.
func (Terminal) RenderRows(w io.Writer, rows []Row) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Airline", "Flight", "Altitude (ft)", "Distance (nm)", "FlightAware", "Flightradar24").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		t.Row(r.Airline, r.Flight, r.AltitudeDisplay, r.DistanceDisplay, r.FlightAwareURL, r.Flightradar24URL)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}
