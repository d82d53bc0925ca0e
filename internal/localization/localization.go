package localization

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed translations/*.yaml
var translationsFS embed.FS

const DefaultLanguage = "ru"

var languages = []string{"ru", "en"}

// Service resolves dotted keys such as "errors.not_found.title" against the
// embedded catalogues. Nested YAML sections are flattened at load time.
type Service struct {
	catalogues map[string]map[string]string
}

var (
	defaultOnce    sync.Once
	defaultService *Service
)

func NewService() (*Service, error) {
	s := &Service{
		catalogues: make(map[string]map[string]string, len(languages)),
	}

	for _, lang := range languages {
		data, err := translationsFS.ReadFile("translations/" + lang + ".yaml")
		if err != nil {
			return nil, errors.Wrapf(err, "read %s translations", lang)
		}

		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, errors.Wrapf(err, "parse %s translations", lang)
		}

		flat := make(map[string]string)
		flatten("", tree, flat)
		s.catalogues[lang] = flat
	}

	return s, nil
}

// Default returns a process-wide service over the embedded catalogue.
// Normalizers fall back to it when no localizer is injected.
func Default() *Service {
	defaultOnce.Do(func() {
		s, err := NewService()
		if err != nil {
			panic(fmt.Sprintf("embedded translations are broken: %v", err))
		}
		defaultService = s
	})
	return defaultService
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		}
	}
}

// Supported reports whether lang has a catalogue.
func (s *Service) Supported(lang string) bool {
	_, ok := s.catalogues[normalizeLang(lang)]
	return ok
}

// Get returns the text for key with {{name}} placeholders filled from params.
// Unknown languages use the default catalogue; unknown keys come back as is.
func (s *Service) Get(lang, key string, params map[string]interface{}) string {
	catalogue, ok := s.catalogues[normalizeLang(lang)]
	if !ok {
		catalogue = s.catalogues[DefaultLanguage]
	}

	text, ok := catalogue[key]
	if !ok {
		return key
	}
	if len(params) == 0 {
		return text
	}

	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{{"+name+"}}", fmt.Sprint(value))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// "en-US" and "EN" both map to "en".
func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}
