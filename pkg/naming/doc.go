// Package naming holds the pure name and version functions shared by every
// other package: distribution name normalization, wheel filename parsing,
// Arch Linux version strings, Python release ordering and platform tags.
//
// Nothing in this package performs I/O.
package naming
