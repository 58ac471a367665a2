// Package testsupport provides shared fixtures for plex-parity tests: a
// config builder rooted in a temp directory, opened stores with cleanup, and
// in-memory fakes of the Plex library and TMDB catalog that count calls.
package testsupport
