package api

import (
	"testing"
)

func TestInitTLS(t *testing.T) {
	tests := []struct {
		name    string
		cert    string
		key     string
		enabled bool
	}{
		{"none", "", "", false},
		{"only cert", "/path/to/cert.pem", "", false},
		{"only key", "", "/path/to/key.pem", false},
		{"both", "/path/to/cert.pem", "/path/to/key.pem", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvTLSCert, tc.cert)
			t.Setenv(EnvTLSKey, tc.key)
			t.Cleanup(func() { SetTLSConfigForTest(nil) })

			InitTLS()
			if IsTLSEnabled() != tc.enabled {
				t.Errorf("IsTLSEnabled = %v, want %v", IsTLSEnabled(), tc.enabled)
			}
			if tc.enabled && GetTLSConfig().CertFile != tc.cert {
				t.Errorf("CertFile = %q, want %q", GetTLSConfig().CertFile, tc.cert)
			}
		})
	}
}

func TestLoadTLSConfig_NotEnabled(t *testing.T) {
	SetTLSConfigForTest(nil)

	cfg, err := LoadTLSConfig()
	if err != nil || cfg != nil {
		t.Errorf("expected nil, nil when TLS is off; got %v, %v", cfg, err)
	}
}

func TestLoadTLSConfig_InvalidFiles(t *testing.T) {
	SetTLSConfigForTest(&TLSConfig{
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	})
	defer SetTLSConfigForTest(nil)

	if _, err := LoadTLSConfig(); err == nil {
		t.Error("expected an error when cert files don't exist")
	}
}
