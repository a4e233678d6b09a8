// Package deps computes the dependency closure of a Python package in terms
// of system packages.
//
// # Overview
//
// A root reference (a project name, git+ URL or file:// path) is resolved
// to a release, its runtime requirements are read back from an isolated
// install, and every requirement is mapped to a [PackageRef]: the system
// package name it is known as, and whether the system already provides it.
// Requirements that do not exist yet are planned recursively. The result
// is a [Closure]: one [Plan] per package to build, dependencies first, and
// the dependency graph.
//
// # Naming
//
// The name a package is built under prefers an installed package (which
// may carry a non-standard name inherited from elsewhere), then a
// repository package, then the generated default. The name used when
// depending on a package prefers the repository name first, so a locally
// built override can be swapped for the repository package without
// breaking dependents.
//
// # Metapackages
//
// Some repository packages bundle several distributions. When a root's
// system package lists more than one distribution metadata directory, the
// root becomes a [KindMeta] plan: an empty package depending on one
// generated sub-package per bundled distribution. Each sub-package is
// named with the vendored prefix (python--name) and conflicts with any
// other version of the metapackage.
//
// # Memoization
//
// A [Builder] remembers every plan and reference it computed for its
// lifetime, so shared dependencies of several roots are resolved once.
// A package that is re-entered while still being resolved is reported as
// a CYCLIC_DEPENDENCY error.
package deps
