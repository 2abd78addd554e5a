// Package cli implements the queryopts command: decode, encode, normalize and
// inspect option query strings against a registry document.
package cli
