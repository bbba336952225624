/*
Package log provides structured logging for Covey built on zerolog.

Call Init once at process start, then use the package helpers or
derive child loggers with WithComponent / WithRunID. Console output
is the default; JSON output is available for machine collection.
Logging transport beyond stderr is out of scope for this tool.
*/
package log
