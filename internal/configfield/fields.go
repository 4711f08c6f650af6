// Package configfield holds typed configuration values and the ordered
// collections used to layer a job environment.
package configfield

import (
	"regexp"
	"sort"
)

var macroPattern = regexp.MustCompile(`\{([A-Z_]+)\}`)

// Fields is a code-ordered set of fields. Adding a field whose code is
// already present merges into the existing entry.
type Fields struct {
	name   string
	source Source
	fields map[string]*Field
	codes  []string
}

func New(name string) *Fields {
	return &Fields{
		name:   name,
		fields: make(map[string]*Field),
	}
}

func (f *Fields) Name() string {
	return f.name
}

// WithSource sets the source stamped on added fields that carry none.
func (f *Fields) WithSource(src Source) *Fields {
	f.source = src
	return f
}

// Add inserts a copy of field, or for a known code updates only its value,
// source and (when supplied) logo.
func (f *Fields) Add(field *Field) *Fields {
	if field == nil {
		return f
	}
	src := field.Source
	if src.IsZero() {
		src = f.source
	}

	if existing, ok := f.fields[field.code]; ok {
		existing.Value = field.Value
		existing.Source = src
		if field.Logo != "" {
			existing.Logo = field.Logo
		}
		return f
	}

	c := field.clone()
	c.Source = src
	f.fields[c.code] = c
	idx := sort.SearchStrings(f.codes, c.code)
	f.codes = append(f.codes, "")
	copy(f.codes[idx+1:], f.codes[idx:])
	f.codes[idx] = c.code
	return f
}

// AddAll merges every field of other, in code order.
func (f *Fields) AddAll(other *Fields) *Fields {
	if other == nil {
		return f
	}
	for _, field := range other.All() {
		f.Add(field)
	}
	return f
}

func (f *Fields) Get(code string) *Field {
	return f.fields[code]
}

func (f *Fields) Has(code string) bool {
	_, ok := f.fields[code]
	return ok
}

// Remove drops code; returns whether it was present.
func (f *Fields) Remove(code string) bool {
	if _, ok := f.fields[code]; !ok {
		return false
	}
	delete(f.fields, code)
	idx := sort.SearchStrings(f.codes, code)
	f.codes = append(f.codes[:idx], f.codes[idx+1:]...)
	return true
}

func (f *Fields) Codes() []string {
	out := make([]string, len(f.codes))
	copy(out, f.codes)
	return out
}

// All returns the fields in code order.
func (f *Fields) All() []*Field {
	out := make([]*Field, 0, len(f.codes))
	for _, code := range f.codes {
		out = append(out, f.fields[code])
	}
	return out
}

func (f *Fields) Len() int {
	return len(f.codes)
}

// SetSource stamps src on every field.
func (f *Fields) SetSource(src Source) *Fields {
	for _, field := range f.fields {
		field.Source = src
	}
	return f
}

// SetValues assigns values to fields by code, creating string fields for
// unknown codes.
func (f *Fields) SetValues(values map[string]string) *Fields {
	codes := make([]string, 0, len(values))
	for code := range values {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if existing, ok := f.fields[code]; ok {
			existing.Value = values[code]
			continue
		}
		f.Add(NewField(code, TypeString, code).SetValue(values[code]))
	}
	return f
}

// ApplyMacros replaces {NAME} tokens with the value of field NAME. Values
// are read from a snapshot taken before any replacement, so expansion is a
// single pass; unknown tokens are kept as is.
func (f *Fields) ApplyMacros() *Fields {
	snapshot := f.EnvMap()
	for _, code := range f.codes {
		field := f.fields[code]
		raw := field.EffectiveValue()
		if !macroPattern.MatchString(raw) {
			continue
		}
		field.Value = expand(raw, snapshot)
	}
	return f
}

// EnvMap returns the flat code to value map handed to executors.
func (f *Fields) EnvMap() map[string]string {
	env := make(map[string]string, len(f.codes))
	for _, code := range f.codes {
		env[code] = f.fields[code].EffectiveValue()
	}
	return env
}

// Clone returns a deep copy.
func (f *Fields) Clone() *Fields {
	c := New(f.name).WithSource(f.source)
	for _, code := range f.codes {
		c.fields[code] = f.fields[code].clone()
	}
	c.codes = f.Codes()
	return c
}

// Expand substitutes {NAME} tokens in template from fields.
func Expand(template string, fields *Fields) string {
	if fields == nil {
		return template
	}
	return expand(template, fields.EnvMap())
}

// ExpandMap substitutes {NAME} tokens in template from env.
func ExpandMap(template string, env map[string]string) string {
	return expand(template, env)
}

func expand(template string, values map[string]string) string {
	return macroPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}

// FromMap builds string fields from a plain map with the given source.
func FromMap(name string, values map[string]string, src Source) *Fields {
	f := New(name).WithSource(src)
	f.SetValues(values)
	return f
}
