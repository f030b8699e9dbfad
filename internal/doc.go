// Package internal contains the implementation packages of mycoserve.
//
// # Package Organization
//
// The internal packages follow one connection from accept to access log:
//
//   - server: Listener, bounded worker pool and per-connection pipeline
//   - request: Request head parsing and virtual-host detection
//   - router: Maps (host, path) to the handler of a virtual host
//   - static: Files from the site root with 403/404 pages
//   - taxonomy: Source parsing and the modification-time memo
//   - render: Templates, fragments, image counting and the search index
//   - response: Wire serialization of the three statuses
//   - logging: Structured logger, connection tally and access log aggregator
//   - config: Configuration loading and validation
//   - errors: Structured error type and codes
//   - watcher: Debounced file watching for the taxonomy command
//   - version: Build information
//
// # Shared State
//
// Between connections only three things are shared:
//
//   - the Tally, behind a single mutex held for the counter update only
//   - the TemplateSet, loaded once and never written again
//   - the Taxonomy, swapped atomically when the source file changes
//
// Access records flow through a channel to the aggregator's single
// consumer, so a slow disk never holds up a worker.
package internal
