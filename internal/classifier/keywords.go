package classifier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Keyword maps a lower-case substring to a category.
type Keyword struct {
	Match    string `toml:"match"`
	Category string `toml:"category"`
}

// Keywords is an ordered table; the first matching entry wins.
type Keywords []Keyword

type keywordFile struct {
	Keyword []Keyword `toml:"keyword"`
}

// DefaultKeywords returns the built-in seed table.
func DefaultKeywords() Keywords {
	return Keywords{
		{Match: "shoes", Category: "Clothing"},
		{Match: "shirt", Category: "Clothing"},
		{Match: "pants", Category: "Clothing"},
		{Match: "grocery", Category: "Groceries"},
		{Match: "supermarket", Category: "Groceries"},
		{Match: "restaurant", Category: "Dining"},
		{Match: "cafe", Category: "Dining"},
		{Match: "electricity", Category: "Utilities"},
		{Match: "water", Category: "Utilities"},
		{Match: "rent", Category: "Housing"},
		{Match: "mortgage", Category: "Housing"},
	}
}

// LoadKeywordsFile reads a TOML keyword table:
//
//	[[keyword]]
//	match = "uber"
//	category = "Transport"
func LoadKeywordsFile(path string) (Keywords, error) {
	var f keywordFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode keywords %s: %w", path, err)
	}
	kw := Keywords(f.Keyword)
	if err := kw.Validate(); err != nil {
		return nil, fmt.Errorf("keywords %s: %w", path, err)
	}
	return kw.normalized(), nil
}

func (k Keywords) Validate() error {
	var errs []error
	for i, kw := range k {
		if strings.TrimSpace(kw.Match) == "" {
			errs = append(errs, fmt.Errorf("entry %d: empty match", i))
		}
		if strings.TrimSpace(kw.Category) == "" {
			errs = append(errs, fmt.Errorf("entry %d: empty category", i))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the category of the first keyword contained in description.
func (k Keywords) Lookup(description string) (string, bool) {
	lower := strings.ToLower(description)
	for _, kw := range k {
		if strings.Contains(lower, kw.Match) {
			return kw.Category, true
		}
	}
	return "", false
}

func (k Keywords) normalized() Keywords {
	out := make(Keywords, len(k))
	for i, kw := range k {
		out[i] = Keyword{
			Match:    strings.ToLower(strings.TrimSpace(kw.Match)),
			Category: strings.TrimSpace(kw.Category),
		}
	}
	return out
}
