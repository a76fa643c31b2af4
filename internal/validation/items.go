// Package validation checks and normalizes user input before it reaches the model.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/socialchef/chef/internal/errors"
)

const (
	// MaxItems caps the number of ingredients in one request.
	MaxItems = 20
	// MaxItemLength caps a single ingredient, in runes.
	MaxItemLength = 64
	// PromptPrefix introduces the item list in the model prompt.
	PromptPrefix = "items: "
)

// NormalizeItems splits a comma-separated ingredient list, trims each entry,
// drops empties and case-insensitive duplicates, and keeps first-seen order.
func NormalizeItems(raw string) ([]string, error) {
	var items []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		item := strings.Join(strings.Fields(part), " ")
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		if utf8.RuneCountInString(item) > MaxItemLength {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("item %q is longer than %d characters", truncate(item, 20), MaxItemLength),
				"ITEM_TOO_LONG",
				"Use short ingredient names such as \"chicken\" or \"basil\".",
			)
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, apperrors.NewValidationError("at least one item is required", "ITEMS_REQUIRED",
			"Provide a comma-separated list of ingredients.")
	}
	if len(items) > MaxItems {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("too many items: %d (max %d)", len(items), MaxItems),
			"TOO_MANY_ITEMS",
			fmt.Sprintf("Pick at most %d ingredients.", MaxItems),
		)
	}
	return items, nil
}

// Prompt renders normalized items as model input.
func Prompt(items []string) string {
	return PromptPrefix + strings.Join(items, ", ")
}

// ItemsPrompt normalizes raw and returns the prompt together with the items.
func ItemsPrompt(raw string) (string, []string, error) {
	items, err := NormalizeItems(raw)
	if err != nil {
		return "", nil, err
	}
	return Prompt(items), items, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
