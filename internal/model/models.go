package model

// All lists every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Company{},
		&Application{},
		&AppConfigField{},
		&RunTemplate{},
		&RunTemplateConfig{},
		&CredentialType{},
		&Credential{},
		&CredentialValue{},
		&RunTemplateCredential{},
		&ActionConfig{},
		&Job{},
		&ScheduleEntry{},
		&EventSource{},
		&EventRule{},
		&StoredFile{},
	}
}
