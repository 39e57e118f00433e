package ffmpeg

import (
	"fmt"
	"strconv"

	"recproc/internal/config"
)

func preamble(input string) []string {
	return []string{"-hide_banner", "-nostdin", "-n", "-loglevel", "warning", "-i", input}
}

// CompressArgs returns the arguments re-encoding input into a frame-rate and
// size bounded copy at output.
func CompressArgs(c config.Compress, input, output string) []string {
	args := preamble(input)
	args = append(args,
		"-c:v", c.Codec,
		"-preset", c.Preset,
		"-crf", strconv.Itoa(c.CRF),
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-filter:v", fmt.Sprintf("fps=%d", c.FPS),
		output,
	)
	return args
}

// ExtractArgs returns the arguments cutting [start, end) from input. Seeking
// happens after -i so the cut is frame accurate.
func ExtractArgs(e config.Extract, input, output, start, end string) []string {
	args := preamble(input)
	args = append(args,
		"-ss", start,
		"-to", end,
		"-c:v", e.Codec,
		"-preset", e.Preset,
		"-crf", strconv.Itoa(e.CRF),
	)
	if e.Codec == "libx264" {
		args = append(args, "-x264-params", fmt.Sprintf("keyint=%d", e.Keyint))
	} else {
		args = append(args, "-g", strconv.Itoa(e.Keyint))
	}
	args = append(args, output)
	return args
}
