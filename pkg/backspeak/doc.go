// ABOUTME: High-level backspeak library API
// ABOUTME: Records a clip, plays it back reversed, and publishes the reversed WAV
// Package backspeak provides the capture lifecycle for reversed recordings.
//
// A Recorder pulls chunks from a Source while recording. Stop runs the
// pipeline on everything captured (decode, reverse, encode to 16-bit WAV)
// and hands the result to a Publisher, which returns a releasable Clip.
//
// States move idle → recording → processing → ready. Any failure sends the
// recorder back to idle and discards what was captured.
//
// For the pieces on their own, see the audio, decode, transform and encode
// packages.
//
// Example:
//
//	rec, err := backspeak.NewRecorder(backspeak.RecorderConfig{
//	    Source:    capture.NewMicrophone(capture.Config{}),
//	    Publisher: store,
//	    OnStateChange: func(s backspeak.State) {
//	        fmt.Println("state:", s)
//	    },
//	})
//	err = rec.Start(ctx)
//	...
//	clip, err := rec.Stop()
//	fmt.Println(clip.URL)
package backspeak
