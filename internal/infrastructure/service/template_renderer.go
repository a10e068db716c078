package service

import (
	"errors"
	"strings"
)

// PlaceholderRenderer implements command.TemplateRenderer by replacing
// {Name} markers with values from the substitution map. Markers without
// a matching substitution are left verbatim so a misconfigured template
// is visible in the rendered document instead of producing silent blanks.
type PlaceholderRenderer struct{}

func NewPlaceholderRenderer() *PlaceholderRenderer {
	return &PlaceholderRenderer{}
}

func (r *PlaceholderRenderer) Render(templateText string, substitutions map[string]string) (string, error) {
	if strings.TrimSpace(templateText) == "" {
		return "", errors.New("template content is empty")
	}

	pairs := make([]string, 0, len(substitutions)*2)
	for key, value := range substitutions {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(templateText), nil
}
