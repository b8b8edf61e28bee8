package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"autotrans/internal/services"
)

// Info holds the facts the pipeline needs about one audio file.
type Info struct {
	Codec      string
	Channels   int
	SampleRate int
	BitDepth   int
	Tags       Tags
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName        string            `json:"codec_name"`
	CodecType        string            `json:"codec_type"`
	SampleRate       string            `json:"sample_rate"`
	Channels         int               `json:"channels"`
	BitsPerSample    int               `json:"bits_per_sample"`
	BitsPerRawSample string            `json:"bits_per_raw_sample"`
	Tags             map[string]string `json:"tags"`
}

type probeFormat struct {
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Probe inspects path with ffprobe and returns the first audio stream's
// properties together with the container tags.
func (t *Toolkit) Probe(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, errors.New("ffprobe inspect: empty path")
	}
	output, err := t.exec.Run(ctx, t.ffprobe, []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path})
	if err != nil {
		return Info{}, services.Wrap(services.ErrExternalTool, "probe", "ffprobe", path, err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (Info, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return Info{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	for _, stream := range result.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		info := Info{
			Codec:    stream.CodecName,
			Channels: stream.Channels,
			BitDepth: stream.BitsPerSample,
			Tags:     Tags{},
		}
		if rate, err := strconv.Atoi(strings.TrimSpace(stream.SampleRate)); err == nil {
			info.SampleRate = rate
		}
		if raw, err := strconv.Atoi(strings.TrimSpace(stream.BitsPerRawSample)); err == nil && raw > 0 {
			info.BitDepth = raw
		}
		for k, v := range result.Format.Tags {
			info.Tags.Set(k, v)
		}
		for k, v := range stream.Tags {
			if !info.Tags.Has(k) {
				info.Tags.Set(k, v)
			}
		}
		return info, nil
	}
	return Info{}, services.Wrap(services.ErrValidation, "probe", "parse", "no audio stream", nil)
}
