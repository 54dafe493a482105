package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

// SimplifySlug names the built-in simplify prompt.
const SimplifySlug = "simplify"

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefault loads an embedded prompt by slug.
func LoadDefault(slug string) (*Prompt, error) {
	name := "prompts/" + slug + ".md"
	data, err := defaultPromptsFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded prompt %s: %w", slug, err)
	}
	return Load(name, data)
}

// Resolve returns the prompt for slug, preferring an override in dir when dir is set.
func Resolve(dir, slug string) (*Prompt, error) {
	if strings.TrimSpace(dir) != "" {
		override, err := LoadFromDir(dir, slug)
		if err != nil {
			return nil, err
		}
		if override != nil {
			return override, nil
		}
	}
	return LoadDefault(slug)
}

// Render substitutes {{name}} placeholders in a single left-to-right pass.
// Substituted values are never rescanned, so a value containing a placeholder
// is emitted literally. Unknown placeholders are left in place.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{{"+key+"}}", vars[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
