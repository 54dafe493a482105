package prompt

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load parses and validates a prompt definition from markdown with YAML frontmatter.
func Load(source string, data []byte) (*Prompt, error) {
	config, body, err := parseYAMLWithFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		config.SystemTemplate = strings.TrimSpace(body)
	}
	if strings.TrimSpace(config.Slug) == "" {
		config.Slug = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	if strings.TrimSpace(config.SystemTemplate) == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}

	return &Prompt{Config: config, Source: source}, nil
}

// LoadFile reads a single prompt override from disk.
func LoadFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- prompt path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", path, err)
	}
	return Load(path, data)
}

// LoadFromDir looks for <slug>.md in dir. A missing file is not an error; the
// returned prompt is nil.
func LoadFromDir(dir, slug string) (*Prompt, error) {
	path := filepath.Join(dir, slug+".md")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat prompt %s: %w", path, err)
	}
	return LoadFile(path)
}

func parseYAMLWithFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Split(bufio.ScanLines)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}

	var cfg Config
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	} else {
		// Plain markdown without frontmatter is treated as the template body.
		return Config{}, strings.Join(body, "\n"), nil
	}

	return cfg, strings.Join(body, "\n"), nil
}

// validateConfig checks that every declared required variable appears in the template.
func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Slug) == "" {
		return fmt.Errorf("slug is required")
	}
	for _, name := range cfg.Input.RequiredVariables {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.Contains(cfg.SystemTemplate, "{{"+name+"}}") {
			return fmt.Errorf("template does not reference required variable %q", name)
		}
	}
	return nil
}
