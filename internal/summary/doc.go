// Package summary turns ready transcripts into short briefings and fans
// out notification jobs once a summary lands.
package summary
