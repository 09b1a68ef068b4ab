// Package registry builds the immutable tool catalog from the host
// application's operation metadata. Discovery runs exactly once, in
// registration order; duplicate names keep the first registration and a
// schema failure skips only the affected tool. Lookup is case-insensitive.
package registry
