// Package tui is a bubbletea view of running tasks: a progress bar for the
// task that reported last, a list of every task with its final counters,
// and a scrolling log of journal entries.
package tui
