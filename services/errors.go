package services

// FieldError describes a validation failure scoped to a single input field,
// so the client can highlight the offending form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func fieldError(field, message string) []FieldError {
	return []FieldError{{Field: field, Message: message}}
}
