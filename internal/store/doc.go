// Package store provides SQLite-backed persistence for a single World.
//
// A World is one database file holding the whole Category/Article graph:
//   - Categories: roots of a subtree, unique by name within the World
//   - Fields: per-Category schema slots, unique by name within their Category
//   - Articles: members of exactly one Category
//   - Field values: exactly one per (Article, Field of its Category)
//   - Connections: directional rows that always exist as a mirrored pair
//   - Connection descriptions: one shared row per Connection pair
//   - Snippets: free-form notes on an Article, unique by name within it
//
// # Referential Integrity
//
// No foreign keys are declared. Every mutation that touches more than one
// table runs in a single transaction and deletes children before parents,
// so the invariants above hold after every call or the call fails with the
// store untouched.
//
// Connection rows carry the role of the *other* article as seen from the
// main article. The main article's role inside a pair is therefore read from
// the mirror row's other_article_role.
//
// # Database Configuration
//
//   - journal_mode=DELETE: the store is always a single file (migrations copy it)
//   - synchronous=FULL
//   - busy_timeout: configurable, 5 seconds by default
//   - one open connection: single writer, single reader at a time
//
// The schema version lives in PRAGMA user_version; see ReadVersion and
// WriteVersion. Migrations themselves are applied by package migrate.
package store
