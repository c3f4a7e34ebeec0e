// Package discovery finds module implementations in a module tree and
// registers them.
//
// A module tree has one directory per capability kind (parsers,
// llm_providers, agents, social_networks) and one subdirectory per module.
// Subdirectories whose names start with "_" or "." are private and skipped.
// Each module is loaded from its entry point, in this order:
//
//  1. module.yaml, when present, may disable the module, name a Go plugin
//     (.so) and the constructor symbols it exports, or point at a catalog
//     key other than the default.
//  2. The compile-time catalog, keyed "<kind dir>/<module dir>". Module
//     packages add themselves from init with Provide.
//
// Every exported constructor whose product is a concrete type implementing
// the kind's contract is registered. A failure in one module is logged and
// recorded in the Report; discovery always moves on to the next module.
package discovery
