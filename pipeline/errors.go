package pipeline

// ConfigurationError is fatal before any stage work: a missing credential
// or a missing required input field. The reason is shown to the caller
// verbatim, so it must name the credential or field.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Reason }
