// Package contracts defines the capability interfaces that every pluggable
// module implements: parsers, LLM providers, agents and social-network
// publishers. It also defines the records that flow between them.
//
// Implementations are selected by name at runtime through the registries in
// package registry; callers only ever see these interfaces.
package contracts
