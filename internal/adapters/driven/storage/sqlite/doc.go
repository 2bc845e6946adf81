// Package sqlite persists the code index in a single SQLite file,
// ~/.codeassist/data/index.db by default, using the pure-Go modernc.org/sqlite
// driver so builds need no cgo.
//
// One Store serves both index ports. FileIndexStore keeps the files and
// symbols tables; deleting a file cascades to its symbols. EmbeddingRepository
// keeps chunk vectors as little-endian float32 blobs and loads them all for
// brute-force search.
//
// The schema lives in migrations/ and is brought up to date when the store
// opens. Connections run in WAL mode with a busy timeout, so the API server
// and a watcher in another process can share the file.
package sqlite
