// Package watch implements `stemsplit watch`: an fsnotify loop over one
// directory that splits new or rewritten audio files once they stop changing.
package watch
