package builder

import (
	"encoding/json"
	"strings"
)

type lineMap struct {
	Version  int      `json:"version"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

type indexMap struct {
	Version  int          `json:"version"`
	File     string       `json:"file"`
	Sections []mapSection `json:"sections"`
}

type mapSection struct {
	Offset mapOffset       `json:"offset"`
	Map    json.RawMessage `json:"map"`
}

type mapOffset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// identityMap maps every line of code to the same line of the module.
func identityMap(name, code string) json.RawMessage {
	lines := strings.Count(code, "\n") + 1
	m := lineMap{
		Version:  3,
		Sources:  []string{name},
		Names:    []string{},
		Mappings: "AAAA" + strings.Repeat(";AACA", lines-1),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return data
}
