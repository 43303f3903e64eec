// Package formconfig loads declarative form definitions, collection bindings
// and table mappings from JSON or YAML documents stored in an fs.FS.
//
// Forms describe child form schemas either inline or by pointing at an
// OpenAPI component schema. Collections bind a relation alias to a child
// form plus cardinality bounds and messages. Tables describe the SQLite
// mapping used by the command line tool.
package formconfig
