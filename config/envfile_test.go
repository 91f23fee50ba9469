package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCredentialStoreFallsBackToExample(t *testing.T) {
	dir := t.TempDir()
	example := filepath.Join(dir, ".env.example")
	if err := os.WriteFile(example, []byte("# template\nKORAIL_ID=someone\nOTHER=ignored\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := CredentialStore{Path: filepath.Join(dir, ".env"), ExamplePath: example}

	env, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if env["KORAIL_ID"] != "someone" {
		t.Fatalf("expected value from example, got %q", env["KORAIL_ID"])
	}
	if _, ok := env["OTHER"]; ok {
		t.Fatalf("unknown keys must be ignored")
	}
	if v, ok := env["KORAIL_PW"]; !ok || v != "" {
		t.Fatalf("expected empty default for missing key")
	}
}

func TestCredentialStoreMissingEverything(t *testing.T) {
	dir := t.TempDir()
	s := CredentialStore{Path: filepath.Join(dir, ".env"), ExamplePath: filepath.Join(dir, ".env.example")}
	env, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(env) != 4 {
		t.Fatalf("expected 4 default keys, got %d", len(env))
	}
}

func TestCredentialStoreMergeIsPartial(t *testing.T) {
	dir := t.TempDir()
	s := CredentialStore{Path: filepath.Join(dir, ".env")}
	if err := s.Write(map[string]string{"KORAIL_ID": "a", "KORAIL_PW": "p w", "TELEGRAM_BOT_TOKEN": "", "TELEGRAM_CHAT_ID": "-1001"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.Merge(map[string]string{"KORAIL_ID": "b", "NOT_A_KEY": "x"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	env, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if env["KORAIL_ID"] != "b" {
		t.Fatalf("expected merged id, got %q", env["KORAIL_ID"])
	}
	if env["KORAIL_PW"] != "p w" {
		t.Fatalf("expected password kept, got %q", env["KORAIL_PW"])
	}
	if env["TELEGRAM_CHAT_ID"] != "-1001" {
		t.Fatalf("expected chat id kept, got %q", env["TELEGRAM_CHAT_ID"])
	}
	b, _ := os.ReadFile(s.Path)
	if strings.Contains(string(b), "NOT_A_KEY") {
		t.Fatalf("unknown key persisted: %s", b)
	}
	info, err := os.Stat(s.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 credential file, got %v", info.Mode().Perm())
	}
}

func TestEnvironAmbientWins(t *testing.T) {
	ambient := []string{"PATH=/bin", "KORAIL_ID=ambient", "KORAIL_PW="}
	creds := map[string]string{"KORAIL_ID": "file", "KORAIL_PW": "secret", "TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": ""}

	got := map[string]string{}
	for _, kv := range Environ(ambient, creds) {
		k, v, _ := strings.Cut(kv, "=")
		if _, dup := got[k]; dup {
			t.Fatalf("duplicate key %s", k)
		}
		got[k] = v
	}
	if got["KORAIL_ID"] != "ambient" {
		t.Fatalf("expected ambient id, got %q", got["KORAIL_ID"])
	}
	if got["KORAIL_PW"] != "secret" {
		t.Fatalf("empty ambient must not hide file value, got %q", got["KORAIL_PW"])
	}
	if got["TELEGRAM_BOT_TOKEN"] != "tok" || got["PATH"] != "/bin" {
		t.Fatalf("unexpected environ %v", got)
	}
}

func TestLoadProcessCredentialsKeepsInjectedValues(t *testing.T) {
	for _, key := range []string{"KORAIL_ID", "KORAIL_PW", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("KORAIL_ID", "injected")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KORAIL_ID=from-file\nKORAIL_PW=secret\nTELEGRAM_CHAT_ID=42\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	creds := LoadProcessCredentials(path)
	if creds.KorailID != "injected" {
		t.Fatalf("environment value must win, got %q", creds.KorailID)
	}
	if creds.KorailPW != "secret" || creds.TelegramChatID != "42" || creds.TelegramBotToken != "" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}
