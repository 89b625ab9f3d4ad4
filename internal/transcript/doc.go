// Package transcript fetches caption text for ingested videos and drives
// the transcript progress track.
package transcript
