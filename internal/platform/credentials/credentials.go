// Package credentials bootstraps the credential object the document store
// connection needs. The object comes from a YAML secrets file under a fixed
// namespace, or failing that from a local JSON credential file.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Source names where the credential object was found.
type Source string

const (
	SourceSecrets Source = "secrets"
	SourceFile    Source = "file"
)

// Credentials is a service-account style credential object encoded as JSON.
type Credentials struct {
	JSON   []byte
	Source Source
}

// SetupError reports that no usable credential object could be found.
// It is fatal: the application has no offline mode.
type SetupError struct {
	Reason string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("setup error: %s: %v", e.Reason, e.Err)
	}
	return "setup error: " + e.Reason
}

func (e *SetupError) Unwrap() error { return e.Err }

// Bootstrap resolves the credential object. The secrets file wins when it
// carries the namespace; the local key file is the fallback.
func Bootstrap(secretsPath, namespace, keyFile string) (Credentials, error) {
	creds, found, err := fromSecrets(secretsPath, namespace)
	if err != nil {
		return Credentials{}, &SetupError{Reason: "reading secrets file " + secretsPath, Err: err}
	}
	if found {
		slog.Info("store credentials loaded", "source", SourceSecrets, "namespace", namespace)
		return creds, nil
	}

	creds, found, err = fromFile(keyFile)
	if err != nil {
		return Credentials{}, &SetupError{Reason: "reading credential file " + keyFile, Err: err}
	}
	if found {
		slog.Info("store credentials loaded", "source", SourceFile, "path", keyFile)
		return creds, nil
	}

	return Credentials{}, &SetupError{
		Reason: fmt.Sprintf("no %q entry in %s and no credential file at %s; did you set up the secrets?",
			namespace, secretsPath, keyFile),
	}
}

func fromSecrets(path, namespace string) (Credentials, bool, error) {
	if path == "" || namespace == "" {
		return Credentials{}, false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, err
	}

	var secrets map[string]any
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return Credentials{}, false, fmt.Errorf("parse secrets: %w", err)
	}

	section, ok := secrets[namespace]
	if !ok {
		return Credentials{}, false, nil
	}
	object, ok := section.(map[string]any)
	if !ok || len(object) == 0 {
		return Credentials{}, false, fmt.Errorf("secrets entry %q is not a mapping", namespace)
	}

	encoded, err := json.Marshal(object)
	if err != nil {
		return Credentials{}, false, fmt.Errorf("encode secrets entry %q: %w", namespace, err)
	}
	return Credentials{JSON: encoded, Source: SourceSecrets}, true, nil
}

func fromFile(path string) (Credentials, bool, error) {
	if path == "" {
		return Credentials{}, false, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, false, nil
	}
	if err != nil {
		return Credentials{}, false, err
	}

	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		return Credentials{}, false, fmt.Errorf("parse credential file: %w", err)
	}
	return Credentials{JSON: data, Source: SourceFile}, true, nil
}
