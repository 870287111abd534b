package models

import (
	"fmt"
	"regexp"
)

var resourcePattern = regexp.MustCompile(`^\d+(Mi|Gi)$`)

// ValidationError describes a rejected JobConfiguration field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Validate checks a JobConfiguration before it reaches any provider.
// It returns the first violation found as a *ValidationError.
func (c *JobConfiguration) Validate() error {
	if c.Image == "" {
		return &ValidationError{Field: "image", Message: "container image is required"}
	}
	if c.CPU <= 0 {
		return &ValidationError{Field: "cpu", Message: "must be a positive number of millicores"}
	}
	if !resourcePattern.MatchString(c.Memory) {
		return &ValidationError{Field: "memory", Message: "must match <number>Mi or <number>Gi"}
	}
	if c.Storage != "" && !resourcePattern.MatchString(c.Storage) {
		return &ValidationError{Field: "storage", Message: "must match <number>Mi or <number>Gi"}
	}
	if c.Duration < 0 {
		return &ValidationError{Field: "duration", Message: "must not be negative"}
	}
	for i, p := range c.Ports {
		if p.ContainerPort <= 0 || p.ContainerPort > 65535 {
			return &ValidationError{
				Field:   fmt.Sprintf("ports[%d].container_port", i),
				Message: "must be between 1 and 65535",
			}
		}
		if p.Protocol != "TCP" && p.Protocol != "UDP" {
			return &ValidationError{
				Field:   fmt.Sprintf("ports[%d].protocol", i),
				Message: "must be TCP or UDP",
			}
		}
	}
	return nil
}
