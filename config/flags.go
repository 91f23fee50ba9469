package config

import (
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Flags are command-line overrides. Only flags the user actually set are
// applied, so settings and environment values survive unset flags.
type Flags struct {
	SettingsFile   string
	Addr           string
	EnvFile        string
	EnvExampleFile string
	CriteriaFile   string
	SearchInterval time.Duration
	SessionRefresh time.Duration
	MaxAttempts    int
	ReserveOption  string
	JournalURL     string
}

// Register adds the flags to a flag set
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.SettingsFile, "settings", "", "path to the YAML settings file (default settings.yaml)")
	fs.StringVar(&f.Addr, "addr", "", "control panel listen address, loopback only")
	fs.StringVar(&f.EnvFile, "env-file", "", "credential file")
	fs.StringVar(&f.EnvExampleFile, "env-example-file", "", "credential template used when the credential file is missing")
	fs.StringVar(&f.CriteriaFile, "configs", "", "search criteria file")
	fs.DurationVar(&f.SearchInterval, "interval", 0, "delay between search sweeps")
	fs.DurationVar(&f.SessionRefresh, "session-refresh", 0, "re-login after the session is this old")
	fs.IntVar(&f.MaxAttempts, "max-attempts", 0, "stop after this many sweeps, 0 for no limit")
	fs.StringVar(&f.ReserveOption, "reserve-option", "", "seat option for seat_type=any: GENERAL_FIRST, SPECIAL_FIRST")
	fs.StringVar(&f.JournalURL, "journal-url", "", "reservation journal, postgres:// or redis:// URL")
}

// Apply copies changed flags onto cfg and revalidates it
func (f *Flags) Apply(fs *pflag.FlagSet, cfg *Config) error {
	if fs.Changed("addr") {
		cfg.Addr = f.Addr
	}
	if fs.Changed("env-file") {
		cfg.EnvFile = f.EnvFile
	}
	if fs.Changed("env-example-file") {
		cfg.EnvExampleFile = f.EnvExampleFile
	}
	if fs.Changed("configs") {
		cfg.CriteriaFile = f.CriteriaFile
	}
	if fs.Changed("interval") {
		cfg.SearchInterval = f.SearchInterval
	}
	if fs.Changed("session-refresh") {
		cfg.SessionRefresh = f.SessionRefresh
	}
	if fs.Changed("max-attempts") {
		cfg.MaxAttempts = f.MaxAttempts
	}
	if fs.Changed("reserve-option") {
		cfg.ReserveOption = f.ReserveOption
	}
	if fs.Changed("journal-url") {
		cfg.JournalURL = f.JournalURL
	}
	return cfg.Validate()
}

// EngineArgs returns the flags that make a child engine process use the
// same files and tuning as this configuration.
func EngineArgs(cfg *Config, settingsFile string) []string {
	args := []string{
		"--env-file", cfg.EnvFile,
		"--env-example-file", cfg.EnvExampleFile,
		"--configs", cfg.CriteriaFile,
		"--interval", cfg.SearchInterval.String(),
		"--session-refresh", cfg.SessionRefresh.String(),
		"--max-attempts", strconv.Itoa(cfg.MaxAttempts),
		"--reserve-option", cfg.ReserveOption,
	}
	if settingsFile != "" {
		args = append(args, "--settings", settingsFile)
	}
	if cfg.JournalURL != "" {
		args = append(args, "--journal-url", cfg.JournalURL)
	}
	return args
}
