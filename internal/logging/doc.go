// Package logging provides file-based logging with rotation for akin.
// Every command writes JSON logs to ~/.vimo/akin/logs/akin.log (and to
// stderr) at the configured level.
//
// The --debug flag raises that level to debug for one invocation.
package logging
