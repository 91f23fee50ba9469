package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dhgwag/korail-reservation/models"
)

// CredentialStore reads and writes the KEY=VALUE credential file. When the
// file does not exist the example template is read instead.
type CredentialStore struct {
	Path        string
	ExamplePath string
}

// Read returns every recognized key, empty when unset. Unknown keys are ignored.
func (s CredentialStore) Read() (map[string]string, error) {
	env := emptyCredentials()

	target := s.Path
	if !fileExists(target) {
		target = s.ExamplePath
		if target == "" || !fileExists(target) {
			return env, nil
		}
	}

	values, err := godotenv.Read(target)
	if err != nil {
		return env, fmt.Errorf("read credentials %s: %w", target, err)
	}
	for _, key := range models.CredentialKeys {
		if v, ok := values[key]; ok {
			env[key] = strings.TrimSpace(v)
		}
	}
	return env, nil
}

// Merge applies the recognized keys of update over the stored values and
// persists the result.
func (s CredentialStore) Merge(update map[string]string) (map[string]string, error) {
	env, err := s.Read()
	if err != nil {
		return nil, err
	}
	for _, key := range models.CredentialKeys {
		if v, ok := update[key]; ok {
			env[key] = v
		}
	}
	if err := s.Write(env); err != nil {
		return nil, err
	}
	return env, nil
}

// Write replaces the credential file
func (s CredentialStore) Write(env map[string]string) error {
	content, err := godotenv.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := writeFileAtomic(s.Path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credentials %s: %w", s.Path, err)
	}
	return nil
}

// Environ returns ambient with the credential keys filled from creds. A
// non-empty ambient value takes precedence over the file.
func Environ(ambient []string, creds map[string]string) []string {
	recognized := make(map[string]bool, len(models.CredentialKeys))
	for _, key := range models.CredentialKeys {
		recognized[key] = true
	}

	out := make([]string, 0, len(ambient)+len(models.CredentialKeys))
	fromAmbient := make(map[string]bool)
	for _, kv := range ambient {
		key, value, _ := strings.Cut(kv, "=")
		if recognized[key] {
			if value == "" {
				continue
			}
			fromAmbient[key] = true
		}
		out = append(out, kv)
	}
	for _, key := range models.CredentialKeys {
		if !fromAmbient[key] {
			out = append(out, key+"="+creds[key])
		}
	}
	return out
}

// LoadProcessCredentials reads the credentials of the running process. Values
// already in the environment win; the credential file fills the gaps so the
// engine also works when started by hand.
func LoadProcessCredentials(envFile string) models.Credentials {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("WARNING: could not load %s: %v", envFile, err)
		}
	}
	env := make(map[string]string, len(models.CredentialKeys))
	for _, key := range models.CredentialKeys {
		env[key] = strings.TrimSpace(os.Getenv(key))
	}
	return models.CredentialsFromMap(env)
}

func emptyCredentials() map[string]string {
	env := make(map[string]string, len(models.CredentialKeys))
	for _, key := range models.CredentialKeys {
		env[key] = ""
	}
	return env
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
