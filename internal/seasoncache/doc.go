// Package seasoncache memoizes TMDB season episode lists in a bbolt file.
//
// Entries are keyed by catalog id, season number and a freshness token taken
// from the show's most recent known air date. When the token moves on, older
// entries simply stop being looked up; Prune reclaims them but is never
// needed for correctness. Only the compacted (episode number, air date) view
// of a season is stored.
package seasoncache
