// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/refine/lib/config"
	"github.com/bureau-foundation/refine/lib/jira"
)

// TrackerParams are the flags of every command that calls the tracker.
// Embed it in a command's params struct.
type TrackerParams struct {
	Timeout time.Duration `json:"-" flag:"timeout" desc:"abandon each tracker request after this long (0 waits indefinitely)"`
	Verbose bool          `json:"-" flag:"verbose,v" desc:"log tracker requests to stderr"`
}

// Logger returns the command logger at the level the flags select.
func (params TrackerParams) Logger(env Environment) *slog.Logger {
	level := slog.LevelWarn
	if params.Verbose {
		level = slog.LevelDebug
	}
	return NewCommandLogger(env.Stderr, level)
}

// Connection is the loaded configuration and the tracker client built
// from it.
type Connection struct {
	Config *config.Config
	Client *jira.Client
	Logger *slog.Logger
}

// Connect loads the configuration from env and creates the tracker
// client. The caller must Close the connection.
//
// Used by every command except the local ones (help, version):
//
//	connection, err := cli.Connect(env, params.TrackerParams)
//	if err != nil {
//	    return err
//	}
//	defer connection.Close()
func Connect(env Environment, params TrackerParams) (*Connection, error) {
	return ConnectWithLogger(env, params, params.Logger(env))
}

// ConnectWithLogger is Connect for commands that route logs somewhere
// other than stderr, such as the full-screen session.
func ConnectWithLogger(env Environment, params TrackerParams, logger *slog.Logger) (*Connection, error) {
	cfg, err := config.Loader{
		Lookup:         env.LookupEnv,
		DefaultEnvFile: env.DefaultEnvFile,
		Logger:         logger,
	}.Load()
	if err != nil {
		return nil, err
	}

	httpClient := env.HTTPClient
	if params.Timeout > 0 {
		base := http.DefaultClient
		if httpClient != nil {
			base = httpClient
		}
		limited := *base
		limited.Timeout = params.Timeout
		httpClient = &limited
	}

	client, err := jira.NewClient(cfg.JiraConfig(httpClient, logger))
	if err != nil {
		cfg.Close()
		return nil, err
	}
	return &Connection{Config: cfg, Client: client, Logger: logger}, nil
}

// Close releases the credentials held by the client and the
// configuration.
func (c *Connection) Close() error {
	return errors.Join(c.Client.Close(), c.Config.Close())
}
