package credentials_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lenslove/academy/internal/platform/credentials"
)

func TestBootstrap_FromSecrets(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets.yaml")
	os.WriteFile(secrets, []byte(`
firebase:
  type: service_account
  project_id: lens-love
  client_email: bot@lens-love.iam.gserviceaccount.com
other:
  token: ignored
`), 0o600)

	creds, err := credentials.Bootstrap(secrets, "firebase", filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if creds.Source != credentials.SourceSecrets {
		t.Errorf("Source = %q, want secrets", creds.Source)
	}

	var object map[string]any
	if err := json.Unmarshal(creds.JSON, &object); err != nil {
		t.Fatalf("credential JSON invalid: %v", err)
	}
	if object["project_id"] != "lens-love" {
		t.Errorf("project_id = %v, want lens-love", object["project_id"])
	}
	if _, leaked := object["token"]; leaked {
		t.Error("credential object should only contain the namespace entry")
	}
}

func TestBootstrap_SecretsPreferredOverFile(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets.yaml")
	keyFile := filepath.Join(dir, "firebase_key.json")
	os.WriteFile(secrets, []byte("firebase:\n  project_id: from-secrets\n"), 0o600)
	os.WriteFile(keyFile, []byte(`{"project_id":"from-file"}`), 0o600)

	creds, err := credentials.Bootstrap(secrets, "firebase", keyFile)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if creds.Source != credentials.SourceSecrets {
		t.Errorf("Source = %q, want secrets", creds.Source)
	}
}

func TestBootstrap_FallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "secrets.yaml")
	keyFile := filepath.Join(dir, "firebase_key.json")
	os.WriteFile(secrets, []byte("other:\n  token: x\n"), 0o600)
	os.WriteFile(keyFile, []byte(`{"project_id":"from-file"}`), 0o600)

	creds, err := credentials.Bootstrap(secrets, "firebase", keyFile)
	if err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if creds.Source != credentials.SourceFile {
		t.Errorf("Source = %q, want file", creds.Source)
	}
	if string(creds.JSON) != `{"project_id":"from-file"}` {
		t.Errorf("JSON = %s", creds.JSON)
	}
}

func TestBootstrap_NothingConfigured(t *testing.T) {
	dir := t.TempDir()

	_, err := credentials.Bootstrap(filepath.Join(dir, "none.yaml"), "firebase", filepath.Join(dir, "none.json"))
	var setupErr *credentials.SetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("Bootstrap() error = %v, want *SetupError", err)
	}
}

func TestBootstrap_MalformedInputs(t *testing.T) {
	tests := []struct {
		name    string
		secrets string
		keyFile string
	}{
		{"secrets not yaml", "firebase: [unclosed", ""},
		{"namespace not a mapping", "firebase: just-a-string\n", ""},
		{"key file not json", "", "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			secrets := filepath.Join(dir, "secrets.yaml")
			keyFile := filepath.Join(dir, "key.json")
			if tt.secrets != "" {
				os.WriteFile(secrets, []byte(tt.secrets), 0o600)
			}
			if tt.keyFile != "" {
				os.WriteFile(keyFile, []byte(tt.keyFile), 0o600)
			}

			_, err := credentials.Bootstrap(secrets, "firebase", keyFile)
			var setupErr *credentials.SetupError
			if !errors.As(err, &setupErr) {
				t.Fatalf("Bootstrap() error = %v, want *SetupError", err)
			}
		})
	}
}
