package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultSimplify(t *testing.T) {
	p, err := LoadDefault(SimplifySlug)
	require.NoError(t, err)
	require.Equal(t, SimplifySlug, p.Config.Slug)
	require.Contains(t, p.Config.SystemTemplate, "{{target_language}}")
	require.Contains(t, p.Config.SystemTemplate, "{{level_instruction}}")

	temp, ok := p.Temperature()
	require.True(t, ok)
	require.InDelta(t, 0.7, temp, 0.0001)
}

func TestLoadRejectsMissingRequiredVariable(t *testing.T) {
	data := []byte("---\nslug: broken\ninput:\n  required_variables: [target_language]\n---\nNo placeholders here.\n")
	_, err := Load("broken.md", data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "target_language")
}

func TestLoadWithoutFrontmatterUsesFileName(t *testing.T) {
	p, err := Load("/tmp/custom.md", []byte("Answer in {{target_language}}."))
	require.NoError(t, err)
	require.Equal(t, "custom", p.Config.Slug)
	require.Equal(t, "Answer in {{target_language}}.", p.Config.SystemTemplate)
}

func TestResolvePrefersOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := "---\nslug: simplify\n---\nCustom for {{target_language}}: {{level_instruction}}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "simplify.md"), []byte(override), 0o600))

	p, err := Resolve(dir, SimplifySlug)
	require.NoError(t, err)
	require.Contains(t, p.Config.SystemTemplate, "Custom for")

	p, err = Resolve(t.TempDir(), SimplifySlug)
	require.NoError(t, err)
	require.Contains(t, p.Source, "prompts/simplify.md")
}

func TestRender(t *testing.T) {
	out := Render("{{a}} and {{b}} and {{c}}", map[string]string{"a": "1", "b": "2"})
	require.Equal(t, "1 and 2 and {{c}}", out)
}

func TestRenderDoesNotExpandSubstitutedValues(t *testing.T) {
	vars := map[string]string{
		"target_language":   "{{level}}",
		"level_instruction": "{{target_language}}",
		"level":             "Executive summary",
	}
	template := "Write in {{target_language}}. {{level_instruction}} ({{level}})"
	want := "Write in {{level}}. {{target_language}} (Executive summary)"

	for i := 0; i < 200; i++ {
		require.Equal(t, want, Render(template, vars))
	}
}
