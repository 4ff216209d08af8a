// Package ui provides helpers for formatting human-readable console output.
//
// ConsoleCommandEventLogger turns git lifecycle events into sentences for the
// console log format, and Notifier prints the coloured progress notices an
// import emits while detailed telemetry continues to flow through zap.
package ui
