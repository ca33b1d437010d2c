// Package config loads pagebridge configuration and constructs the
// process logger.
//
// Configuration is a single YAML file resolved via PAGEBRIDGE_CONFIG,
// then $XDG_CONFIG_HOME/pagebridge/pagebridge.yaml, then
// ~/.config/pagebridge/pagebridge.yaml. Every field has a default, so
// the server runs with no config file at all.
//
// ${VAR_NAME} patterns anywhere in the file are expanded from the
// environment before parsing. Duration fields are written as human
// strings ("5s", "1m") and parsed after unmarshaling.
package config
