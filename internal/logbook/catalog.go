// Package logbook holds the EASA field catalog and the import, export and
// currency helpers that work on logbook entries.
package logbook

import "strings"

const (
	TypeDate   = "date"
	TypeText   = "text"
	TypeTime   = "time"
	TypeNumber = "number"
)

// Field describes one column of the EASA logbook.
type Field struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// Catalog is the EASA field catalog in display order.
var Catalog = []Field{
	{"date", "Date", TypeDate, "basic"},
	{"departure", "Departure (place)", TypeText, "basic"},
	{"departureTime", "Departure time", TypeTime, "basic"},
	{"arrival", "Arrival (place)", TypeText, "basic"},
	{"arrivalTime", "Arrival time", TypeTime, "basic"},

	{"aircraft", "Aircraft type", TypeText, "aircraft"},
	{"registration", "Registration", TypeText, "aircraft"},
	{"aircraftSe", "Aircraft SE", TypeText, "aircraft"},
	{"aircraftMe", "Aircraft ME", TypeText, "aircraft"},

	{"pic", "Name of PIC", TypeText, "crew"},

	{"singlePilotSeTime", "Single-pilot time SE", TypeNumber, "time"},
	{"singlePilotMeTime", "Single-pilot time ME", TypeNumber, "time"},
	{"multiPilotTime", "Multi-pilot time", TypeNumber, "time"},
	{"turbineTime", "Turbine time", TypeNumber, "time"},
	{"totalTime", "Total Time", TypeNumber, "time"},
	{"picTime", "PIC Time", TypeNumber, "time"},
	{"copilotTime", "Co-Pilot Time", TypeNumber, "time"},
	{"dualTime", "Dual Time", TypeNumber, "time"},
	{"instructorTime", "Instructor Time", TypeNumber, "time"},
	{"nightTime", "Night Time", TypeNumber, "time"},
	{"ifrTime", "IFR Time", TypeNumber, "time"},

	{"landingsDay", "Landings Day", TypeNumber, "landings"},
	{"landingsNight", "Landings Night", TypeNumber, "landings"},

	{"syntheticDate", "Synthetic training date", TypeDate, "training"},
	{"syntheticType", "Synthetic training type", TypeText, "training"},
	{"syntheticTime", "Synthetic training time", TypeNumber, "training"},

	{"remarks", "Remarks", TypeText, "other"},
}

// DefaultViewFields are the columns shown by the default logbook view.
var DefaultViewFields = []string{
	"date", "departure", "arrival", "aircraft", "registration",
	"totalTime", "picTime", "landingsDay", "landingsNight",
}

var catalogByKey = func() map[string]Field {
	m := make(map[string]Field, len(Catalog))
	for _, f := range Catalog {
		m[f.Key] = f
	}
	return m
}()

// Lookup returns the field with the given key.
func Lookup(key string) (Field, bool) {
	f, ok := catalogByKey[key]
	return f, ok
}

// SelectFields returns catalog fields for keys in catalog order. An empty
// selection means every field. Unknown keys are ignored.
func SelectFields(keys []string) []Field {
	if len(keys) == 0 {
		return Catalog
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[strings.TrimSpace(k)] = true
	}
	out := make([]Field, 0, len(keys))
	for _, f := range Catalog {
		if want[f.Key] {
			out = append(out, f)
		}
	}
	return out
}
