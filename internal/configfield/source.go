package configfield

import "fmt"

// SourceKind tells which configuration layer a value came from.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceApplicationDefault
	SourceTenantOverride
	SourceCredentialType
	SourceFile
	SourceJobOverride
)

func (k SourceKind) String() string {
	switch k {
	case SourceApplicationDefault:
		return "application"
	case SourceTenantOverride:
		return "runtemplate"
	case SourceCredentialType:
		return "credential"
	case SourceFile:
		return "file"
	case SourceJobOverride:
		return "job"
	default:
		return "unknown"
	}
}

// Source is the provenance of a field value.
type Source struct {
	Kind SourceKind `json:"kind"`
	// Name identifies the concrete origin: credential type name, file path, ...
	Name string `json:"name,omitempty"`
	ID   uint   `json:"id,omitempty"`
}

func ApplicationDefault(appName string) Source {
	return Source{Kind: SourceApplicationDefault, Name: appName}
}

func TenantOverride(runTemplateID uint) Source {
	return Source{Kind: SourceTenantOverride, ID: runTemplateID}
}

func CredentialType(name string, credentialID uint) Source {
	return Source{Kind: SourceCredentialType, Name: name, ID: credentialID}
}

func File(path string) Source {
	return Source{Kind: SourceFile, Name: path}
}

func JobOverride(jobID uint) Source {
	return Source{Kind: SourceJobOverride, ID: jobID}
}

func (s Source) IsZero() bool {
	return s.Kind == SourceUnknown && s.Name == "" && s.ID == 0
}

func (s Source) String() string {
	switch {
	case s.Name != "" && s.ID != 0:
		return fmt.Sprintf("%s:%s#%d", s.Kind, s.Name, s.ID)
	case s.Name != "":
		return fmt.Sprintf("%s:%s", s.Kind, s.Name)
	case s.ID != 0:
		return fmt.Sprintf("%s#%d", s.Kind, s.ID)
	default:
		return s.Kind.String()
	}
}
