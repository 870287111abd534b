package models

import (
	"errors"
	"testing"
)

func validConfig() JobConfiguration {
	return JobConfiguration{
		Image:  "nginx:alpine",
		CPU:    100,
		Memory: "512Mi",
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateAcceptsFullConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = "2Gi"
	cfg.Duration = 3600
	cfg.Env = map[string]string{"MODE": "serve"}
	cfg.Ports = []PortMapping{
		{ContainerPort: 80, Protocol: "TCP", Expose: true},
		{ContainerPort: 53, Protocol: "UDP"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*JobConfiguration)
		field  string
	}{
		{"missing image", func(c *JobConfiguration) { c.Image = "" }, "image"},
		{"zero cpu", func(c *JobConfiguration) { c.CPU = 0 }, "cpu"},
		{"negative cpu", func(c *JobConfiguration) { c.CPU = -100 }, "cpu"},
		{"bad memory unit", func(c *JobConfiguration) { c.Memory = "512MB" }, "memory"},
		{"empty memory", func(c *JobConfiguration) { c.Memory = "" }, "memory"},
		{"bad storage", func(c *JobConfiguration) { c.Storage = "10TB" }, "storage"},
		{"negative duration", func(c *JobConfiguration) { c.Duration = -1 }, "duration"},
		{"port out of range", func(c *JobConfiguration) {
			c.Ports = []PortMapping{{ContainerPort: 70000, Protocol: "TCP"}}
		}, "ports[0].container_port"},
		{"bad protocol", func(c *JobConfiguration) {
			c.Ports = []PortMapping{{ContainerPort: 80, Protocol: "ICMP"}}
		}, "ports[0].protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestStatusTerminality(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	active := []JobStatus{JobStatusPending, JobStatusRunning}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}

	if JobStatus("paused").IsValid() {
		t.Error("expected unknown status to be invalid")
	}
}
