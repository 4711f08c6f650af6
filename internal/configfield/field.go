package configfield

// Type is the value type of a field as declared by its application or
// credential type.
type Type string

const (
	TypeString   Type = "string"
	TypeBool     Type = "bool"
	TypeInteger  Type = "integer"
	TypeFloat    Type = "float"
	TypeFilePath Type = "file-path"
	TypeSecret   Type = "secret"
	TypePassword Type = "password"
	TypeURL      Type = "url"
	TypeEmail    Type = "email"
	TypeSet      Type = "set"
	TypeText     Type = "text"
)

// NormalizeType maps legacy form-widget names onto value types.
func NormalizeType(t string) Type {
	switch t {
	case "directory":
		return TypeFilePath
	case "checkbox", "boolean", "switch":
		return TypeBool
	case "text", "":
		return TypeString
	case "number":
		return TypeInteger
	case "select":
		return TypeSet
	case "textarea":
		return TypeText
	}
	return Type(t)
}

// Field is a single named configuration value. Its code is fixed at
// construction.
type Field struct {
	code string

	Type         Type   `json:"type"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Hint         string `json:"hint,omitempty"`
	Note         string `json:"note,omitempty"`
	Logo         string `json:"logo,omitempty"`
	Value        string `json:"value"`
	DefaultValue string `json:"default_value,omitempty"`
	Source       Source `json:"source"`
	Required     bool   `json:"required,omitempty"`
	Secret       bool   `json:"secret,omitempty"`
	Multiline    bool   `json:"multiline,omitempty"`
	Expiring     bool   `json:"expiring,omitempty"`
}

func NewField(code string, typ Type, name string) *Field {
	if name == "" {
		name = code
	}
	return &Field{code: code, Type: typ, Name: name}
}

func (f *Field) Code() string {
	return f.code
}

// SetValue is a chaining setter used when building fields inline.
func (f *Field) SetValue(value string) *Field {
	f.Value = value
	return f
}

func (f *Field) SetSource(src Source) *Field {
	f.Source = src
	return f
}

// EffectiveValue is the value, or the default when no value is set.
func (f *Field) EffectiveValue() string {
	if f.Value != "" {
		return f.Value
	}
	return f.DefaultValue
}

// IsSensitive reports whether the value must be masked when displayed.
func (f *Field) IsSensitive() bool {
	return f.Secret || f.Type == TypeSecret || f.Type == TypePassword
}

func (f *Field) clone() *Field {
	c := *f
	return &c
}
