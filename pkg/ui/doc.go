// Package ui renders journal entries as colored terminal lines and sends
// desktop notifications when tasks finish. The interactive view lives in
// the tui subpackage.
package ui
