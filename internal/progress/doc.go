// Package progress provides the event primitives and emitters workers use to
// report run progress. A Tracker folds events into counters served by the
// /progress endpoint; sinks such as the log emitter mirror them elsewhere.
package progress
