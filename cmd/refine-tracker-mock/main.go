// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Refine-tracker-mock serves the in-memory Jira emulator on a local
// port so refine can be tried, demoed, or scripted against without a
// Jira site. State lives only as long as the process.
//
// On startup it prints the environment that points refine at it:
//
//	eval "$(refine-tracker-mock --fixture backlog.jsonc)"
//	refine session
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/lib/config"
	"github.com/bureau-foundation/refine/lib/jira/jiratest"
	"github.com/bureau-foundation/refine/lib/process"
	"github.com/bureau-foundation/refine/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("refine-tracker-mock", pflag.ContinueOnError)
	listen := flags.String("listen", "127.0.0.1:8089", "address to listen on (loopback only: refine refuses plain HTTP elsewhere)")
	fixturePath := flags.String("fixture", "", "JSONC fixture with the project, account and issues (default: built-in demo backlog)")
	verbose := flags.BoolP("verbose", "v", false, "log every request")
	showVersion := flags.Bool("version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(stdout, "refine-tracker-mock %s\n", version.Current().Short())
		return nil
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(stderr, level)

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		return err
	}
	emulator := jiratest.New(jiratest.Config{Fixture: fixture, Logger: logger})

	listener, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", *listen, err)
	}
	baseURL := "http://" + listener.Addr().String()
	printEnvironment(stdout, baseURL, emulator)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Handler:           emulator,
		ReadHeaderTimeout: 10 * time.Second,
	}
	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()
	logger.Info("tracker mock running", "url", baseURL, "project", emulator.Project())

	select {
	case err := <-served:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadFixture(path string) (*jiratest.Fixture, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	fixture, err := jiratest.ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return fixture, nil
}

func printEnvironment(w io.Writer, baseURL string, emulator *jiratest.Emulator) {
	account := emulator.Account()
	fmt.Fprintf(w, "export %s=%s\n", config.EnvBaseURL, baseURL)
	fmt.Fprintf(w, "export %s=%s\n", config.EnvEmail, account.Email)
	fmt.Fprintf(w, "export %s=%s\n", config.EnvAPIToken, account.Token)
	fmt.Fprintf(w, "export %s=%s\n", config.EnvProjectKey, emulator.Project())
	fmt.Fprintf(w, "export %s=%q\n", config.EnvBacklogJQL, emulator.BacklogJQL())
}
