package dto

// SetCredentialValuesRequest replaces every stored value of a credential.
type SetCredentialValuesRequest struct {
	Values map[string]string `json:"values" validate:"required,min=1,dive,keys,required,max=128,endkeys"`
}
