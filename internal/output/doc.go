// Package output writes merged containers and previews to disk.
//
// FileSink is the emit function handed to the importer: it places each
// output path under a root directory and writes atomically. Lock guards the
// state directory so two imports never write at the same time.
package output
