package generation

import (
	"encoding/json"
	"sort"
	"strings"
)

// Config holds the generation parameters sent to the model endpoint.
//
// NumReturnSequences, ReturnTensors and ReturnText are controlled by the
// caller that decodes the output (see Forced); the remaining fields are
// passed through. Extra carries any option without a dedicated field and
// never overrides one that has.
type Config struct {
	NumReturnSequences int  `json:"num_return_sequences" yaml:"-"`
	ReturnTensors      bool `json:"return_tensors" yaml:"-"`
	ReturnText         bool `json:"return_text" yaml:"-"`

	MaxLength         int     `json:"max_length,omitempty" yaml:"max_length"`
	MinLength         int     `json:"min_length,omitempty" yaml:"min_length"`
	NumBeams          int     `json:"num_beams,omitempty" yaml:"num_beams"`
	EarlyStopping     bool    `json:"early_stopping,omitempty" yaml:"early_stopping"`
	DoSample          bool    `json:"do_sample,omitempty" yaml:"do_sample"`
	TopK              int     `json:"top_k,omitempty" yaml:"top_k"`
	TopP              float64 `json:"top_p,omitempty" yaml:"top_p"`
	Temperature       float64 `json:"temperature,omitempty" yaml:"temperature"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size,omitempty" yaml:"no_repeat_ngram_size"`
	LengthPenalty     float64 `json:"length_penalty,omitempty" yaml:"length_penalty"`

	Extra map[string]any `json:"extra,omitempty" yaml:"extra"`
}

// Forced returns a copy of c asking for exactly one sequence of raw token ids
// and no detokenized text, so decoding stays under our control.
func (c Config) Forced() Config {
	c.NumReturnSequences = 1
	c.ReturnTensors = true
	c.ReturnText = false
	if c.Extra != nil {
		extra := make(map[string]any, len(c.Extra))
		for k, v := range c.Extra {
			extra[k] = v
		}
		c.Extra = extra
	}
	return c
}

// Merge overlays the non-zero fields of o onto c.
func (c Config) Merge(o Config) Config {
	if o.MaxLength != 0 {
		c.MaxLength = o.MaxLength
	}
	if o.MinLength != 0 {
		c.MinLength = o.MinLength
	}
	if o.NumBeams != 0 {
		c.NumBeams = o.NumBeams
	}
	if o.EarlyStopping {
		c.EarlyStopping = true
	}
	if o.DoSample {
		c.DoSample = true
	}
	if o.TopK != 0 {
		c.TopK = o.TopK
	}
	if o.TopP != 0 {
		c.TopP = o.TopP
	}
	if o.Temperature != 0 {
		c.Temperature = o.Temperature
	}
	if o.NoRepeatNgramSize != 0 {
		c.NoRepeatNgramSize = o.NoRepeatNgramSize
	}
	if o.LengthPenalty != 0 {
		c.LengthPenalty = o.LengthPenalty
	}
	if len(o.Extra) > 0 {
		extra := make(map[string]any, len(c.Extra)+len(o.Extra))
		for k, v := range c.Extra {
			extra[k] = v
		}
		for k, v := range o.Extra {
			extra[k] = v
		}
		c.Extra = extra
	}
	return c
}

// Parameters flattens the config into the JSON object sent to the endpoint.
func (c Config) Parameters() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	params := make(map[string]any)
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	delete(params, "extra")
	for k, v := range c.Extra {
		if _, known := knownParameters[k]; known {
			continue
		}
		params[k] = v
	}
	return params, nil
}

var knownParameters = map[string]struct{}{
	"num_return_sequences": {},
	"return_tensors":       {},
	"return_text":          {},
	"max_length":           {},
	"min_length":           {},
	"num_beams":            {},
	"early_stopping":       {},
	"do_sample":            {},
	"top_k":                {},
	"top_p":                {},
	"temperature":          {},
	"no_repeat_ngram_size": {},
	"length_penalty":       {},
}

const (
	ChefScheherazade = "scheherazade"
	ChefGiovanni     = "giovanni"
)

// DefaultChef is used when a request does not name a chef.
const DefaultChef = ChefScheherazade

// DefaultPresets returns the built-in chef presets.
// Scheherazade searches with beams; Giovanni samples.
func DefaultPresets() map[string]Config {
	return map[string]Config{
		ChefScheherazade: {
			MaxLength:         512,
			MinLength:         64,
			NoRepeatNgramSize: 3,
			NumBeams:          5,
			EarlyStopping:     true,
			LengthPenalty:     1.5,
		},
		ChefGiovanni: {
			MaxLength:         512,
			MinLength:         64,
			NoRepeatNgramSize: 3,
			DoSample:          true,
			TopK:              60,
			TopP:              0.95,
		},
	}
}

// Presets resolves chef names to generation configs.
type Presets map[string]Config

// Lookup finds a preset by case-insensitive name. An empty name selects DefaultChef.
func (p Presets) Lookup(name string) (Config, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultChef
	}
	cfg, ok := p[name]
	return cfg, ok
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
