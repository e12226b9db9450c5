package core

import "fmt"

// UnknownTermError reports a peptide annotation that points to a term
// absent from the supplied hierarchy. The run aborts rather than
// silently dropping evidence.
type UnknownTermError struct {
	PeptideID string
	TermID    string
}

func (e *UnknownTermError) Error() string {
	return fmt.Sprintf("peptide %s: annotation %s not found in hierarchy", e.PeptideID, e.TermID)
}

// ConfigError reports an invalid filter or group configuration. It is
// surfaced before any aggregation work begins.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
}
