// Package reconcile aligns the show cache with the live library before a
// scan: entries for shows that left the library are dropped, and entries
// whose local signature changed are relabelled so the next scan re-resolves
// them.
package reconcile
