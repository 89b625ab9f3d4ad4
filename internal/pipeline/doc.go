// Package pipeline carries the shared mechanics of the stage workers: the
// retry backoff schedule, the track transition rules applied after every
// processing attempt, and the worker loop that drives a stage.
package pipeline
