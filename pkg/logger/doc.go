// Package logger is the logging sink for rxflow, built on zerolog.
//
// Every emission, reception and terminal event is reported as one line of the
// form
//
//	<elapsed-ms> <thread-name> <message>
//
// where elapsed-ms counts from logger creation and thread-name is the
// execution context that produced the line (see pkg/common/context). Lines
// written outside any scheduler report "caller".
//
// The console format renders exactly that layout, followed by any extra
// key=value fields. The json format emits the same data as the fields
// elapsed_ms, thread and message. Console colors are used only when the
// output is a terminal. Outputs other than stdout and stderr are
// treated as file paths and rotated with lumberjack.
//
// The sink has no meaning to the scheduling core; Nop discards everything.
package logger
