// Package ui renders pipeline progress for the terminal.
//
// A [Printer] drains the [tasks.ProgressUpdate] channel of a run or an import and prints one
// line per visible update, colored with a [Palette]:
//   - job headers use the title style
//   - new videos and disabled jobs use the warning style
//   - finished downloads and jobs use the ok style
//   - failed jobs and records use the error style
//
// Colors are only emitted when the output is a terminal (see [ShouldColorize]).
package ui
