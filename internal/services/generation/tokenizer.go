package generation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/go-huggingface/tokenizers/hftokenizer"
)

// Tokenizer turns generated token ids back into text.
type Tokenizer interface {
	// Decode converts ids to text. Special tokens are kept unless skipSpecial is set.
	Decode(ids []int, skipSpecial bool) string
	// SpecialTokens lists every special token string the tokenizer knows.
	SpecialTokens() []string
}

// idDecoder is satisfied by both *hftokenizer.Tokenizer and *esentencepiece.Processor.
type idDecoder interface {
	Decode(ids []int) string
}

// PretrainedTokenizer adapts a pretrained HuggingFace or SentencePiece
// tokenizer to Tokenizer. Added tokens are written out verbatim so the
// structural markers survive decoding whatever the library does with them.
type PretrainedTokenizer struct {
	lib     idDecoder
	added   map[int]string
	special map[int]bool
	tokens  []string
}

var _ Tokenizer = (*PretrainedTokenizer)(nil)

// addedToken is one entry of tokenizer.json's added_tokens table.
type addedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

func newPretrainedTokenizer(lib idDecoder, added []addedToken, specialIDs []int, extra []string) *PretrainedTokenizer {
	t := &PretrainedTokenizer{
		lib:     lib,
		added:   make(map[int]string, len(added)),
		special: make(map[int]bool, len(specialIDs)),
	}
	seen := make(map[string]bool)
	addToken := func(tok string) {
		if tok == "" || seen[tok] {
			return
		}
		seen[tok] = true
		t.tokens = append(t.tokens, tok)
	}

	for _, tok := range added {
		t.added[tok.ID] = tok.Content
		if tok.Special {
			t.special[tok.ID] = true
			addToken(tok.Content)
		}
	}
	for _, id := range specialIDs {
		if id >= 0 {
			t.special[id] = true
		}
	}
	for _, tok := range extra {
		addToken(tok)
	}
	sort.Strings(t.tokens)
	return t
}

// Decode implements Tokenizer. Runs of regular ids go through the library
// decoder; added tokens are spliced in between them.
func (t *PretrainedTokenizer) Decode(ids []int, skipSpecial bool) string {
	var sb strings.Builder
	run := make([]int, 0, len(ids))
	flush := func() {
		if len(run) > 0 {
			sb.WriteString(t.lib.Decode(run))
			run = run[:0]
		}
	}

	for _, id := range ids {
		if skipSpecial && t.special[id] {
			continue
		}
		if content, ok := t.added[id]; ok {
			flush()
			sb.WriteString(content)
			continue
		}
		run = append(run, id)
	}
	flush()
	return sb.String()
}

// SpecialTokens implements Tokenizer.
func (t *PretrainedTokenizer) SpecialTokens() []string {
	out := make([]string, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// LoadTokenizer loads the tokenizer of a model directory: tokenizer.json
// when present, otherwise a SentencePiece tokenizer.model. Special tokens
// declared in tokenizer_config.json are added to the ones the tokenizer
// itself marks.
func LoadTokenizer(dir string) (*PretrainedTokenizer, error) {
	var config *api.Config
	var configTokens []string
	configPath := filepath.Join(dir, "tokenizer_config.json")
	if _, err := os.Stat(configPath); err == nil {
		normalized, additional, err := normalizeTokenizerConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("normalizing tokenizer config: %w", err)
		}
		config, err = api.ParseConfigContent(normalized)
		if err != nil {
			return nil, fmt.Errorf("parsing tokenizer config: %w", err)
		}
		config.ConfigFile = configPath
		configTokens = append(declaredTokens(config), additional...)
	}

	jsonPath := filepath.Join(dir, "tokenizer.json")
	if _, err := os.Stat(jsonPath); err == nil {
		added, err := readAddedTokens(jsonPath)
		if err != nil {
			return nil, err
		}
		tok, err := hftokenizer.NewFromFile(config, jsonPath)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer.json: %w", err)
		}
		return newPretrainedTokenizer(tok, added, nil, configTokens), nil
	}

	spPath := filepath.Join(dir, "tokenizer.model")
	if _, err := os.Stat(spPath); err == nil {
		proc, err := esentencepiece.NewProcessorFromPath(spPath)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer.model: %w", err)
		}
		info := proc.ModelInfo()
		specialIDs := []int{info.UnknownID, info.PadID, info.BeginningOfSentenceID, info.EndOfSentenceID}
		return newPretrainedTokenizer(proc, nil, specialIDs, configTokens), nil
	}

	return nil, fmt.Errorf("no tokenizer found in %s (expected tokenizer.json or tokenizer.model)", dir)
}

func declaredTokens(c *api.Config) []string {
	return []string{c.BosToken, c.EosToken, c.PadToken, c.UnkToken, c.ClsToken, c.SepToken, c.MaskToken}
}

// readAddedTokens reads only the added_tokens table; the library owns the rest of the file.
func readAddedTokens(path string) ([]addedToken, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tokenizer.json: %w", err)
	}
	var file struct {
		AddedTokens []addedToken `json:"added_tokens"`
	}
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parsing tokenizer.json: %w", err)
	}
	return file.AddedTokens, nil
}

var specialTokenFields = []string{
	"bos_token", "eos_token", "pad_token", "unk_token",
	"cls_token", "sep_token", "mask_token",
}

// normalizeTokenizerConfig rewrites AddedToken objects in tokenizer_config.json
// to plain strings so the config parser accepts them. It also returns the
// additional_special_tokens list.
func normalizeTokenizerConfig(path string) ([]byte, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config file: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing config JSON: %w", err)
	}

	for _, field := range specialTokenFields {
		if v, ok := raw[field]; ok {
			raw[field] = tokenContent(v)
		}
	}

	var additional []string
	if list, ok := raw["additional_special_tokens"].([]any); ok {
		for _, v := range list {
			if tok := tokenContent(v); tok != "" {
				additional = append(additional, tok)
			}
		}
		raw["additional_special_tokens"] = additional
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, err
	}
	return normalized, additional, nil
}

// tokenContent accepts a plain string or an {"__type": "AddedToken", "content": ...} object.
func tokenContent(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if content, ok := val["content"].(string); ok {
			return content
		}
	}
	return ""
}
