// Package source resolves a package reference to the distribution files
// a manifest is built from.
//
// A reference is a project name looked up on the package index, a git+
// URL, or a file:// path. For index references the newest acceptable
// release is chosen and its files are filtered by interpreter and platform
// compatibility and ordered by the caller's package type preference; see
// [Select].
//
// A [Workspace] holds the files fetched for one package while it is being
// resolved: the downloaded archive, its unpacked tree or a git checkout.
// [Sniff] inspects such a tree for build requirements.
package source
