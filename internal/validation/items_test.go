package validation

import (
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/socialchef/chef/internal/errors"
)

func TestNormalizeItems(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"Simple list", "chicken, rice, peas", []string{"chicken", "rice", "peas"}},
		{"Trims and collapses spaces", "  olive   oil ,garlic  ", []string{"olive oil", "garlic"}},
		{"Drops empties", "tomato,, ,basil,", []string{"tomato", "basil"}},
		{"Case-insensitive dedupe keeps first", "Basil, basil, BASIL, mint", []string{"Basil", "mint"}},
		{"Single item", "eggs", []string{"eggs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeItems(tt.raw)
			if err != nil {
				t.Fatalf("NormalizeItems(%q) error = %v", tt.raw, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeItems(%q) = %v; want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeItemsErrors(t *testing.T) {
	many := make([]string, MaxItems+1)
	for i := range many {
		many[i] = "item" + string(rune('a'+i))
	}

	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"Empty input", "", "ITEMS_REQUIRED"},
		{"Only separators", " , ,, ", "ITEMS_REQUIRED"},
		{"Too many", strings.Join(many, ","), "TOO_MANY_ITEMS"},
		{"Too long", "salt," + strings.Repeat("ü", MaxItemLength+1), "ITEM_TOO_LONG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeItems(tt.raw)
			appErr, ok := apperrors.As(err)
			if !ok {
				t.Fatalf("Expected AppError, got %v", err)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Expected validation error, got %v", appErr.Type)
			}
			if appErr.Code() != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, appErr.Code())
			}
		})
	}
}

func TestNormalizeItemsLengthBoundary(t *testing.T) {
	item := strings.Repeat("ü", MaxItemLength)
	got, err := NormalizeItems(item)
	if err != nil {
		t.Fatalf("Expected %d-rune item to pass, got %v", MaxItemLength, err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 item, got %d", len(got))
	}
}

func TestItemsPrompt(t *testing.T) {
	prompt, items, err := ItemsPrompt("macaroni, butter, salt, bacon, milk, flour, pepper, cream corn, Salt")
	if err != nil {
		t.Fatalf("ItemsPrompt error = %v", err)
	}
	want := "items: macaroni, butter, salt, bacon, milk, flour, pepper, cream corn"
	if prompt != want {
		t.Errorf("ItemsPrompt() prompt = %q; want %q", prompt, want)
	}
	if len(items) != 8 {
		t.Errorf("Expected 8 items, got %d", len(items))
	}

	if _, _, err := ItemsPrompt(""); err == nil {
		t.Error("Expected error for empty input")
	}
}
