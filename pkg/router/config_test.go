package router

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv(EnvListenPort, "")
	t.Setenv(EnvHiddenUpstreamPort, "")
	t.Setenv(EnvDefaultUpstreamPort, "")
	t.Setenv(EnvBindAddress, "")

	cfg := FromEnv()
	if cfg.ListenPort != 18049 {
		t.Errorf("ListenPort = %d, want 18049", cfg.ListenPort)
	}
	if cfg.HiddenUpstreamPort != 18050 {
		t.Errorf("HiddenUpstreamPort = %d, want 18050", cfg.HiddenUpstreamPort)
	}
	if cfg.DefaultUpstreamPort != 18058 {
		t.Errorf("DefaultUpstreamPort = %d, want 18058", cfg.DefaultUpstreamPort)
	}
	if cfg.BindAddr != "127.0.0.1" {
		t.Errorf("BindAddr = %q, want 127.0.0.1", cfg.BindAddr)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvListenPort, "1080")
	t.Setenv(EnvHiddenUpstreamPort, "9050")
	t.Setenv(EnvDefaultUpstreamPort, "9150")
	t.Setenv(EnvBindAddress, "127.0.0.2")

	cfg := FromEnv()
	if cfg.ListenPort != 1080 || cfg.HiddenUpstreamPort != 9050 || cfg.DefaultUpstreamPort != 9150 {
		t.Errorf("ports = %d/%d/%d, want 1080/9050/9150",
			cfg.ListenPort, cfg.HiddenUpstreamPort, cfg.DefaultUpstreamPort)
	}
	if cfg.BindAddr != "127.0.0.2" {
		t.Errorf("BindAddr = %q, want 127.0.0.2", cfg.BindAddr)
	}
}

func TestFromEnvInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"not a number", "socks"},
		{"zero", "0"},
		{"negative", "-1"},
		{"too large", "65536"},
		{"trailing junk", "1080x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvListenPort, tc.value)
			if cfg := FromEnv(); cfg.ListenPort != 18049 {
				t.Errorf("ListenPort = %d, want default 18049", cfg.ListenPort)
			}
		})
	}
}

func TestFromEnvInvalidBindAddress(t *testing.T) {
	t.Setenv(EnvBindAddress, "not-an-ip")
	if cfg := FromEnv(); cfg.BindAddr != "127.0.0.1" {
		t.Errorf("BindAddr = %q, want default 127.0.0.1", cfg.BindAddr)
	}
}
