package audioviz

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const defaultSampleRate = 16000

// pcm holds a fully decoded mono source.
type pcm struct {
	samples []float64
	rate    int
}

// FFmpegDecoder decodes audio by piping a source through ffmpeg into mono
// 16-bit PCM. ffmpeg handles every container and codec the editor accepts,
// including remote URLs.
type FFmpegDecoder struct {
	bin  string
	rate int
}

// NewFFmpegDecoder constructs a decoder using the "ffmpeg" binary on PATH.
func NewFFmpegDecoder() *FFmpegDecoder {
	return &FFmpegDecoder{bin: "ffmpeg", rate: defaultSampleRate}
}

// Decode runs ffmpeg and normalizes the PCM stream to [-1, 1].
func (d *FFmpegDecoder) Decode(ctx context.Context, src string) (Decoded, error) {
	cmd := exec.CommandContext(ctx, d.bin,
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.rate),
		"pipe:1")

	var stderr strings.Builder
	cmd.Stderr = &stderr

	raw, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg decode %q: %s", src, msg)
	}

	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(v) / math.MaxInt16
	}
	return &pcm{samples: samples, rate: d.rate}, nil
}

// Sample returns the peak amplitude per bucket across one frame's worth of
// samples starting at frameOffset. Out-of-range frames yield zeros.
func (d *FFmpegDecoder) Sample(data Decoded, frameOffset, fps, buckets int) []float64 {
	out := make([]float64, buckets)
	buf, ok := data.(*pcm)
	if !ok || fps <= 0 || frameOffset < 0 {
		return out
	}

	perFrame := buf.rate / fps
	if perFrame <= 0 {
		return out
	}
	start := frameOffset * perFrame
	if start >= len(buf.samples) {
		return out
	}
	window := buf.samples[start:min(start+perFrame, len(buf.samples))]

	for i := range out {
		lo := i * len(window) / buckets
		hi := (i + 1) * len(window) / buckets
		for _, v := range window[lo:hi] {
			if a := math.Abs(v); a > out[i] {
				out[i] = a
			}
		}
	}
	return out
}
