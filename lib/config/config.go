// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/secret"
)

// Environment variable names.
const (
	EnvBaseURL    = "JIRA_BASE_URL"
	EnvEmail      = "JIRA_EMAIL"
	EnvAPIToken   = "JIRA_API_TOKEN"
	EnvTokenFile  = "JIRA_API_TOKEN_FILE"
	EnvProjectKey = "JIRA_PROJECT_KEY"
	EnvAuthScheme = "JIRA_AUTH_SCHEME"
	EnvBacklogJQL = "JIRA_BACKLOG_JQL"
	EnvEnvFile    = "REFINE_ENV_FILE"
	EnvProfile    = "REFINE_PROFILE"
)

// DefaultEnvFile is read when REFINE_ENV_FILE is unset and the file
// exists in the working directory.
const DefaultEnvFile = ".env"

var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Config is the process configuration, loaded once at startup.
type Config struct {
	// BaseURL is the tracker site root, without a trailing slash.
	BaseURL string

	// Email is the account email. Required for basic auth.
	Email string

	// Token is the API token in protected memory. Release it with
	// Close.
	Token *secret.Buffer

	// ProjectKey is the tracker project ("PROJ").
	ProjectKey string

	// AuthScheme is basic (Jira Cloud) or bearer (personal access
	// tokens).
	AuthScheme jira.AuthScheme

	// BacklogJQL selects and orders the refinement backlog.
	BacklogJQL string

	// BacklogJQLDerived is true when BacklogJQL was built from the
	// project key and profile rather than set explicitly.
	BacklogJQLDerived bool

	// EnvFile is the dotenv file that was read, or "" if none.
	EnvFile string

	// ProfilePath is the profile that was read, or "" for the built-in
	// profile.
	ProfilePath string

	// Profile carries tracker-specific tuning.
	Profile Profile
}

// MissingError lists every required variable that was not set.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s (set them in the environment or in a %s file)",
		strings.Join(e.Names, ", "), DefaultEnvFile)
}

// Loader reads configuration. The zero value reads the process
// environment and ./.env.
type Loader struct {
	// Lookup reads one variable. Defaults to os.LookupEnv.
	Lookup func(name string) (string, bool)

	// DefaultEnvFile is tried when REFINE_ENV_FILE is unset. Defaults
	// to DefaultEnvFile; set to "-" to disable.
	DefaultEnvFile string

	// Logger receives notices about derived values. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Load resolves the configuration. Values from the dotenv file never
// override variables already set in the environment. Missing required
// variables are reported together in a *MissingError.
func (l Loader) Load() (*Config, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	envFile, dotenv, err := l.readEnvFile(lookup)
	if err != nil {
		return nil, err
	}
	get := func(name string) string {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(dotenv[name])
	}

	scheme, err := jira.ParseAuthScheme(get(EnvAuthScheme))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvAuthScheme, err)
	}

	required := []string{EnvBaseURL, EnvAPIToken, EnvProjectKey}
	if scheme == jira.AuthBasic {
		required = append(required, EnvEmail)
	}
	tokenFile := expandVars(get(EnvTokenFile), lookup)
	var missing []string
	for _, name := range required {
		if get(name) == "" && (name != EnvAPIToken || tokenFile == "") {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Names: missing}
	}

	projectKey := strings.ToUpper(get(EnvProjectKey))
	if !projectKeyPattern.MatchString(projectKey) {
		return nil, fmt.Errorf("%s: invalid project key %q", EnvProjectKey, get(EnvProjectKey))
	}

	profilePath := expandVars(get(EnvProfile), lookup)
	profile := DefaultProfile()
	if profilePath != "" {
		profile, err = LoadProfile(profilePath)
		if err != nil {
			return nil, err
		}
	}

	token, err := loadToken(get(EnvAPIToken), tokenFile)
	if err != nil {
		return nil, err
	}
	if !token.Locked() {
		logger.Debug("API token could not be locked in memory and may be swapped to disk")
	}

	cfg := &Config{
		BaseURL:     strings.TrimRight(get(EnvBaseURL), "/"),
		Email:       get(EnvEmail),
		Token:       token,
		ProjectKey:  projectKey,
		AuthScheme:  scheme,
		BacklogJQL:  get(EnvBacklogJQL),
		EnvFile:     envFile,
		ProfilePath: profilePath,
		Profile:     profile,
	}
	if cfg.BacklogJQL == "" {
		cfg.BacklogJQL = DefaultBacklogJQL(projectKey, profile)
		cfg.BacklogJQLDerived = true
		logger.Info("using derived backlog query", "jql", cfg.BacklogJQL, "override", EnvBacklogJQL)
	}
	return cfg, nil
}

// loadToken protects the token given inline, or else the one read from
// path. The inline value wins when both are set.
func loadToken(inline, path string) (*secret.Buffer, error) {
	if inline != "" {
		token, err := secret.NewFromString(inline)
		if err != nil {
			return nil, fmt.Errorf("protecting %s: %w", EnvAPIToken, err)
		}
		return token, nil
	}
	token, err := secret.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvTokenFile, err)
	}
	return token, nil
}

// readEnvFile returns the dotenv file path and contents. An explicit
// REFINE_ENV_FILE must exist; the default file is optional.
func (l Loader) readEnvFile(lookup func(string) (string, bool)) (string, map[string]string, error) {
	if path, ok := lookup(EnvEnvFile); ok && path != "" {
		values, err := godotenv.Read(path)
		if err != nil {
			return "", nil, fmt.Errorf("reading %s=%s: %w", EnvEnvFile, path, err)
		}
		return path, values, nil
	}

	path := l.DefaultEnvFile
	if path == "" {
		path = DefaultEnvFile
	}
	if path == "-" {
		return "", nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return path, values, nil
}

// DefaultBacklogJQL selects every non-epic ticket of project that is
// not yet in a ready or terminal status, in rank order.
func DefaultBacklogJQL(project string, profile Profile) string {
	var excluded []string
	for _, status := range slices.Concat(profile.ReadyStatuses, profile.TerminalStatuses) {
		excluded = append(excluded, fmt.Sprintf("%q", status))
	}
	if len(excluded) == 0 {
		return fmt.Sprintf("project = %s AND issuetype != Epic ORDER BY Rank ASC", project)
	}
	return fmt.Sprintf("project = %s AND issuetype != Epic AND status NOT IN (%s) ORDER BY Rank ASC",
		project, strings.Join(excluded, ", "))
}

// JiraConfig builds the client configuration. httpClient and logger
// may be nil.
func (c *Config) JiraConfig(httpClient *http.Client, logger *slog.Logger) jira.Config {
	return jira.Config{
		BaseURL:          c.BaseURL,
		ProjectKey:       c.ProjectKey,
		BacklogJQL:       c.BacklogJQL,
		Scheme:           c.AuthScheme,
		Email:            c.Email,
		Token:            c.Token,
		StoryPointsField: c.Profile.StoryPointsField,
		HTTPClient:       httpClient,
		Clock:            clock.Real(),
		Logger:           logger,
	}
}

// Close releases the token.
func (c *Config) Close() error {
	if c.Token == nil {
		return nil
	}
	return c.Token.Close()
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, lookup func(string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value, ok := lookup(parts[1]); ok && value != "" {
			return value
		}
		return parts[2]
	})
}
