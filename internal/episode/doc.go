// Package episode holds the small value types shared by the diff engine, the
// caches and the CLI: S##E## episode codes, ISO air dates, and upcoming
// (date, code) pairs.
package episode
