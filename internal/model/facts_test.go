package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartFacts_Number(t *testing.T) {
	f := PartFacts{
		"float":   12.5,
		"int":     3,
		"int64":   int64(7),
		"jsonnum": json.Number("4.25"),
		"str":     " 9.5 ",
		"bad":     "abc",
		"nan":     math.NaN(),
		"inf":     math.Inf(1),
		"nil":     nil,
		"bool":    true,
	}
	tests := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"float", 12.5, true},
		{"int", 3, true},
		{"int64", 7, true},
		{"jsonnum", 4.25, true},
		{"str", 9.5, true},
		{"bad", 0, false},
		{"nan", 0, false},
		{"inf", 0, false},
		{"nil", 0, false},
		{"bool", 0, false},
		{"absent", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := f.Number(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartFacts_Bool(t *testing.T) {
	f := PartFacts{"yes": true, "str": "false", "num": 1, "junk": "maybe"}

	b, ok := f.Bool("yes")
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = f.Bool("str")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = f.Bool("num")
	assert.False(t, ok)

	_, ok = f.Bool("junk")
	assert.False(t, ok)
}

func TestPartFacts_TruthyAndString(t *testing.T) {
	f := PartFacts{"b": true, "zero": 0, "n": 2, "s": " steel ", "blank": "  ", "nil": nil}

	assert.True(t, f.Truthy("b"))
	assert.False(t, f.Truthy("zero"))
	assert.True(t, f.Truthy("n"))
	assert.True(t, f.Truthy("s"))
	assert.False(t, f.Truthy("blank"))
	assert.False(t, f.Truthy("nil"))
	assert.False(t, f.Has("nil"))

	s, ok := f.String("s")
	assert.True(t, ok)
	assert.Equal(t, "steel", s)
}

func TestPartFacts_KeysAndClone(t *testing.T) {
	f := PartFacts{"b": 1, "a": 2}
	assert.Equal(t, []string{"a", "b"}, f.Keys())

	c := f.Clone()
	c["c"] = 3
	assert.Len(t, f, 2)
}

func TestSeverity_Lower(t *testing.T) {
	assert.Equal(t, SeverityMajor, SeverityCritical.Lower())
	assert.Equal(t, SeverityMinor, SeverityMajor.Lower())
	assert.Equal(t, SeverityInfo, SeverityMinor.Lower())
	assert.Equal(t, SeverityInfo, SeverityInfo.Lower())
	assert.False(t, Severity("blocker").Valid())
	assert.Equal(t, -1, Severity("blocker").Rank())
}

func TestTemplateSpec_EnabledSections(t *testing.T) {
	ts := TemplateSpec{Sections: []TemplateSection{
		{SectionID: "summary", Enabled: true},
		{SectionID: "cost", Enabled: false},
		{SectionID: "findings", Enabled: true},
	}}
	assert.Equal(t, []string{"summary", "findings"}, ts.EnabledSections())
}

func TestRequestError(t *testing.T) {
	err := NewRequestError("selected_role", "unknown role %q", "pilot")
	assert.Equal(t, `selected_role: unknown role "pilot"`, err.Error())

	re, ok := AsRequestError(error(err))
	assert.True(t, ok)
	assert.Equal(t, "selected_role", re.Field)

	assert.Equal(t, "bare", (&RequestError{Message: "bare"}).Error())
}
