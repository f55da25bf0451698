package audioviz

import "context"

// Decoded is the opaque decoded-audio handle produced by the rendering
// engine. The cache never looks inside it.
type Decoded any

// Decoder abstracts the rendering engine's audio facilities: full decode of a
// source and fixed-length visualization sampling at a source frame offset.
type Decoder interface {
	Decode(ctx context.Context, src string) (Decoded, error)
	Sample(data Decoded, frameOffset, fps, buckets int) []float64
}
