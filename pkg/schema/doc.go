// Package schema generates one merged JSON schema per tool.
//
// Build flattens an operation's three parameter sources into a single
// object schema: route parameters (always required), query parameters
// (required per descriptor), and body fields reflected from the body type.
// Property names are camelCased; `validate` tag constraints are copied onto
// the reflected properties. When body reflection fails the body degrades to
// a single generic object property rather than failing the tool.
package schema
