// Package showcache persists the per-show record: the resolved TMDB identity,
// the last computed missing and upcoming episodes, the user's overrides, and
// the local signature used to notice that a library item changed.
//
// Store keeps entries in memory and writes them as one JSON document with a
// temp-file rename. Mutations never persist on their own; callers flush with
// Save at state transitions. The visible missing list is always derived from
// the raw list through VisibleMissing and is recomputed on every mutation
// that touches either side.
//
// Documents written before the versioned layout (a bare map using the older
// tmdb_* field names) are migrated in memory when loaded.
package showcache
