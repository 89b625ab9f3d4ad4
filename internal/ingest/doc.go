// Package ingest parses Atom feed payloads (WebSub pushes and poller
// fetches share the schema) and upserts the videos they announce.
package ingest
