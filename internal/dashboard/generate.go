package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"flightops-sim/internal/telemetry"
)

//go:embed templates/flightops-dashboard.json.tmpl
var templates embed.FS

const templateName = "flightops-dashboard.json.tmpl"

// Tables names the GreptimeDB tables the dashboard queries.
type Tables struct {
	FlightTable  string
	RoamerTable  string
	TriggerTable string
	ClockTable   string
}

// CurrentTables returns the table names in effect, including env overrides.
func CurrentTables() Tables {
	return Tables{
		FlightTable:  telemetry.FlightTableName,
		RoamerTable:  telemetry.RoamerTableName,
		TriggerTable: telemetry.TriggerTableName,
		ClockTable:   telemetry.ClockTableName,
	}
}

// Render writes the Grafana dashboard to outDir and returns its path. The
// datasource uid comes from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string) (string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	t, err := template.New(templateName).Funcs(funcMap).ParseFS(templates, "templates/"+templateName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, "flightops-dashboard.json")
	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	if err := t.Execute(f, CurrentTables()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return outPath, nil
}
