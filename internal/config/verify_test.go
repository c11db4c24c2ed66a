package config

import "testing"

func TestVerifyDefaultIsValid(t *testing.T) {
	if err := Verify(Default()); err != nil {
		t.Fatalf("Verify(Default()) = %v, want nil", err)
	}
}

func TestVerifyRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spec)
	}{
		{"empty addr", func(s *Spec) { s.Server.Addr = "" }},
		{"zero max connections", func(s *Spec) { s.Server.MaxConnections = 0 }},
		{"negative max connections", func(s *Spec) { s.Server.MaxConnections = -1 }},
		{"zero read chunk", func(s *Spec) { s.Server.ReadChunkBytes = 0 }},
		{"negative rate limit", func(s *Spec) { s.Server.CommandsPerSecond = -5 }},
		{"zero reaper interval", func(s *Spec) { s.Reaper.Interval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Verify(cfg); err == nil {
				t.Errorf("Verify() = nil, want error for %s", tt.name)
			}
		})
	}
}
