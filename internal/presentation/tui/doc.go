// Package tui renders the banner, dividers and reports printed by the CLI.
package tui
