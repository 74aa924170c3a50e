package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
)

const (
	envBaseURL = "BARCODEAPI_BASE_URL"
	envToken   = "BARCODEAPI_TOKEN"
	envProfile = "BARCODEAPI_PROFILE"
)

// Overrides are values given on the command line. Empty fields are unset.
type Overrides struct {
	BaseURL string
	Token   string
	Profile string
}

// ClientConfig contains resolved API client settings. An empty BaseURL means
// the public service; an empty Token means anonymous access.
type ClientConfig struct {
	BaseURL string
	Token   string
	Profile string
	// Source names where the token came from: "flag", "env", "profile" or "".
	Source string
}

// ResolveClientConfig merges flags, environment and the stored profile, in
// that order of precedence. A missing profile is only an error when one was
// asked for explicitly.
func ResolveClientConfig(o Overrides) (ClientConfig, error) {
	cfg := ClientConfig{Profile: strings.TrimSpace(o.Profile)}
	explicit := cfg.Profile != ""
	if !explicit {
		if env := firstNonBlankEnv(envProfile); env != "" {
			cfg.Profile = env
			explicit = true
		}
	}

	if err := applyStoredProfile(&cfg, explicit); err != nil {
		return ClientConfig{}, err
	}

	if env := strings.TrimSpace(os.Getenv(envBaseURL)); env != "" {
		cfg.BaseURL = env
	}
	if env := strings.TrimSpace(os.Getenv(envToken)); env != "" {
		cfg.Token = env
		cfg.Source = "env"
	}

	if o.BaseURL != "" {
		cfg.BaseURL = strings.TrimSpace(o.BaseURL)
	}
	if o.Token != "" {
		cfg.Token = o.Token
		cfg.Source = "flag"
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return cfg, nil
}

func applyStoredProfile(cfg *ClientConfig, explicit bool) error {
	name := cfg.Profile
	if !explicit {
		current, err := CurrentProfile()
		if err != nil {
			slog.Debug("keyring unavailable, continuing without stored profile", "error", err)
			return nil
		}
		name = current
		cfg.Profile = current
	}

	p, err := LoadProfile(name)
	if err != nil {
		if explicit {
			return err
		}
		if !errors.Is(err, ErrNotConfigured) {
			slog.Debug("failed to load profile", "profile", name, "error", err)
		}
		return nil
	}

	cfg.BaseURL = p.BaseURL
	if p.Token != "" {
		cfg.Token = p.Token
		cfg.Source = "profile"
	}
	return nil
}
