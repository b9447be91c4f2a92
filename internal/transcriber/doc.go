// Package transcriber shells out to the external transcription command and
// recovers result metadata from the files it leaves behind.
//
// The daemon never inspects transcription internals. It builds the command
// line (output directory, format selection, forced language, diarization
// toggles including the filename token), applies the configured timeout, and
// on success parses the result document for the detected language and
// speaker count. Missing metadata degrades to defaults rather than failing
// the run. The collaborator reports progress through a JSON file it rewrites
// as it works; ReadProgress parses one observation of that file.
package transcriber
