// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the refinement tool's configuration from the
// environment, once, at startup.
//
// Values come from the process environment, then from a dotenv file
// (REFINE_ENV_FILE, or ./.env when present). The dotenv file never
// overrides a variable that is already set. JIRA_BASE_URL,
// JIRA_API_TOKEN and JIRA_PROJECT_KEY are required, plus JIRA_EMAIL
// when JIRA_AUTH_SCHEME is basic (the default). Every missing name is
// reported in one [MissingError] so a first run shows the whole list.
//
// JIRA_BACKLOG_JQL is optional. Without it the backlog query is derived
// from the project key and the profile's ready and terminal statuses,
// and the derived query is logged.
//
// REFINE_PROFILE names an optional YAML [Profile] for sites that differ
// from stock Jira Cloud: the story points custom field, which statuses
// count as ready or terminal, and the status vocabulary the command
// interpreter understands. ${VAR} and ${VAR:-default} are expanded in
// the profile path.
//
// The API token is moved into a [secret.Buffer] during loading; call
// [Config.Close] to release it.
package config
