package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// Transcoder converts the audio file at in to a 16-bit PCM wave file at out.
type Transcoder interface {
	Transcode(ctx context.Context, in, out string) error
}

// ErrNoTranscoder is returned when a conversion needs an external decoder and
// none is configured.
var ErrNoTranscoder = errors.New("audio: no transcoder configured")

// FFmpeg runs the ffmpeg executable. An empty Path searches $PATH.
type FFmpeg struct {
	Path string
}

func (f FFmpeg) Transcode(ctx context.Context, in, out string) error {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-i", in,
		"-acodec", "pcm_s16le",
		"-nostdin",
		"-ab", "128k",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", in, err, lastLine(stderr.Bytes()))
	}

	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("ffmpeg %s: no output produced: %w", in, err)
	}
	return nil
}

func lastLine(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[i+1:]
	}
	return b
}
