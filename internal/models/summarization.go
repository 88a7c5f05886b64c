package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Summarization defaults, applied to any parameter a request leaves out.
const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 500
	DefaultMaxLength    = 10000
	DefaultNumBeams     = 2
	DefaultTopK         = 100
	DefaultTopP         = 0.9
	DefaultTemperature  = 0.5
)

// SummarizationSettings are the parsed chunking and sampling values a worker runs with.
type SummarizationSettings struct {
	ChunkSize    int
	ChunkOverlap int
	MaxLength    int
	NumBeams     int
	TopK         int
	TopP         float64
	Temperature  float64
}

// DefaultSummarizationSettings returns the settings used when nothing is overridden.
func DefaultSummarizationSettings() SummarizationSettings {
	return SummarizationSettings{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MaxLength:    DefaultMaxLength,
		NumBeams:     DefaultNumBeams,
		TopK:         DefaultTopK,
		TopP:         DefaultTopP,
		Temperature:  DefaultTemperature,
	}
}

// Validate checks the chunk geometry and the top_p range.
func (s SummarizationSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", s.ChunkOverlap)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p must be in [0, 1], got %v", s.TopP)
	}
	return nil
}

// ParseInt reads an integer setting, keeping fallback when raw is empty.
func ParseInt(name, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return v, nil
}

// ParseFloat reads a numeric setting, keeping fallback when raw is empty.
func ParseFloat(name, raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", name, raw)
	}
	return v, nil
}

// Settings resolves p against the defaults exactly as a launched worker will,
// so a request the worker would reject can be refused up front.
func (p SummarizationParams) Settings() (SummarizationSettings, error) {
	s := DefaultSummarizationSettings()
	ints := []struct {
		name string
		raw  json.Number
		dst  *int
	}{
		{"chunk_size", p.ChunkSize, &s.ChunkSize},
		{"chunk_overlap", p.ChunkOverlap, &s.ChunkOverlap},
		{"max_length", p.MaxLength, &s.MaxLength},
		{"top_k", p.TopK, &s.TopK},
		{"num_beams", p.NumBeams, &s.NumBeams},
	}
	for _, f := range ints {
		v, err := ParseInt(f.name, f.raw.String(), *f.dst)
		if err != nil {
			return s, err
		}
		*f.dst = v
	}

	var err error
	if s.TopP, err = ParseFloat("top_p", p.TopP.String(), s.TopP); err != nil {
		return s, err
	}
	if s.Temperature, err = ParseFloat("temperature", p.Temperature.String(), s.Temperature); err != nil {
		return s, err
	}
	return s, s.Validate()
}
