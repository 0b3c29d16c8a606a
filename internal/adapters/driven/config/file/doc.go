// Package file provides the TOML configuration file adapter.
//
// The file lists the federated sources in configuration order together
// with the federation and server settings:
//
//	[federation]
//	failure_policy = "fail"
//
//	[[sources]]
//	key = "teia"
//	type = "graphql"
//	namespaces = ["KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton"]
//
//	  [sources.graphql]
//	  endpoint = "https://indexer.example/v1/graphql"
//
// Watcher re-reads the file on change and hands valid configurations to a
// callback; invalid ones are logged and the previous one stays active.
package file
