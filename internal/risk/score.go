// Package risk scores identified risks: probability and impact ordinals are
// multiplied into a criticality in [1, 25], which is banded into a severity.
//
// The functions here are pure and safe for concurrent use. Every surface that
// shows or submits a score (form, JSON endpoint, record submission, CLI) goes
// through Compute so no caller re-derives the bands.
package risk

import "strings"

// Level is a probability or impact ordinal. The zero value is unset.
type Level int

const (
	LevelUnset Level = iota
	MuitoBaixo
	Baixo
	Medio
	Alto
	MuitoAlto
)

var levelNames = [...]string{
	MuitoBaixo: "MUITO BAIXO",
	Baixo:      "BAIXO",
	Medio:      "MÉDIO",
	Alto:       "ALTO",
	MuitoAlto:  "MUITO ALTO",
}

// Levels lists the defined ordinals in ascending order.
func Levels() []Level {
	return []Level{MuitoBaixo, Baixo, Medio, Alto, MuitoAlto}
}

// ParseLevel maps a label such as "MUITO ALTO" to its ordinal. Blank and
// unknown labels are unset. Matching ignores case and surrounding space.
func ParseLevel(label string) (Level, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return LevelUnset, false
	}
	for _, l := range Levels() {
		if levelNames[l] == label {
			return l, true
		}
	}
	return LevelUnset, false
}

// Valid reports whether l is one of the five defined ordinals.
func (l Level) Valid() bool {
	return l >= MuitoBaixo && l <= MuitoAlto
}

// Value is the ordinal's weight, 1 through 5, or 0 when unset.
func (l Level) Value() int {
	if !l.Valid() {
		return 0
	}
	return int(l)
}

func (l Level) String() string {
	if !l.Valid() {
		return ""
	}
	return levelNames[l]
}

// Severity is the band a criticality falls into.
type Severity string

const (
	SeverityBaixo   Severity = "BAIXO"
	SeverityMedio   Severity = "MÉDIO"
	SeverityAlto    Severity = "ALTO"
	SeverityExtremo Severity = "EXTREMO"
)

// Upper bounds (exclusive) of the lower three bands.
const (
	baixoBelow = 3
	medioBelow = 8
	altoBelow  = 15
)

// Band classifies a criticality. Bands are half-open and checked in
// ascending order.
func Band(criticality int) Severity {
	switch {
	case criticality < baixoBelow:
		return SeverityBaixo
	case criticality < medioBelow:
		return SeverityMedio
	case criticality < altoBelow:
		return SeverityAlto
	default:
		return SeverityExtremo
	}
}

// Score is the computed pair shown read-only in the form and sent to the backend.
type Score struct {
	Criticality int      `json:"criticidade"`
	Severity    Severity `json:"severidade"`
}

// Compute scores a probability/impact pair. ok is false while either input
// is unset, in which case no score must be displayed.
func Compute(probability, impact Level) (score Score, ok bool) {
	if !probability.Valid() || !impact.Valid() {
		return Score{}, false
	}
	c := probability.Value() * impact.Value()
	return Score{Criticality: c, Severity: Band(c)}, true
}

// ComputeLabels is Compute over raw labels.
func ComputeLabels(probability, impact string) (Score, bool) {
	p, _ := ParseLevel(probability)
	i, _ := ParseLevel(impact)
	return Compute(p, i)
}
