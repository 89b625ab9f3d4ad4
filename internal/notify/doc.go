// Package notify delivers summary emails to subscribers by working off
// the notification job queue.
package notify
