package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/audio"
)

// maxPiperOutput bounds the raw PCM read from one piper run.
const maxPiperOutput = 32 << 20

var errNoModel = errors.New("piper: no model configured")

// Piper synthesizes speech with a local piper binary. Each utterance runs a
// fresh process with the text preloaded on stdin.
type Piper struct {
	binary  string
	model   string
	voices  map[string]string
	timeout time.Duration
}

// NewPiper creates a piper synthesizer from cfg.
func NewPiper(cfg reader.PiperConfig) *Piper {
	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}
	return &Piper{
		binary:  binary,
		model:   cfg.Model,
		voices:  cfg.Voices,
		timeout: cfg.Timeout,
	}
}

// Name implements Synthesizer.
func (p *Piper) Name() string { return "piper" }

// Available reports whether the binary is on PATH and a model is set.
func (p *Piper) Available() bool {
	if p.model == "" && len(p.voices) == 0 {
		return false
	}
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Model returns the model for voice, falling back to the default model.
func (p *Piper) Model(voice string) string {
	if m, ok := p.voices[voice]; ok && m != "" {
		return m
	}
	return p.model
}

// Synthesize implements Synthesizer.
func (p *Piper) Synthesize(ctx context.Context, text, voice string) (*audio.Clip, error) {
	model := p.Model(voice)
	if model == "" {
		return nil, errNoModel
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary, "--model", model, "--output_raw")
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 100 * time.Millisecond

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("piper: %w", ctx.Err())
		}
		return nil, fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("piper produced no audio: %s", strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() > maxPiperOutput {
		return nil, fmt.Errorf("piper output too large: %d bytes", stdout.Len())
	}

	return audio.NewClipFromPCM(stdout.Bytes(), audio.PCMFormat{
		SampleRate: modelSampleRate(model),
		Channels:   1,
		BitDepth:   16,
	})
}

// modelSampleRate reads the rate from the model's JSON config next to it.
func modelSampleRate(model string) int {
	data, err := os.ReadFile(model + ".json")
	if err != nil {
		return audio.DefaultPCMRate
	}
	var cfg struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if json.Unmarshal(data, &cfg) != nil || cfg.Audio.SampleRate <= 0 {
		return audio.DefaultPCMRate
	}
	return cfg.Audio.SampleRate
}
