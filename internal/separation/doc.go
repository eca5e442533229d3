// Package separation invokes the external source-separation model.
//
// The network itself is opaque: Demucs stages the decoded audio as a WAV,
// runs the demucs CLI with the configured model and device, and reads the
// four stems back into an audio.StemSet. Tests swap the command runner and
// never need demucs installed.
package separation
