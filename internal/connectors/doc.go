// Package connectors holds the sources codeassist reads project files from.
// The filesystem connector watches a working tree and feeds changes to the indexer.
package connectors
