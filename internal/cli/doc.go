// Package cli implements the hareline command-line interface: on-demand and
// scheduled scrapes against the local file store, source-kind detection, and
// operator helpers for kennel tag mapping.
package cli
