package whoapi

import "encoding/json"

// Entity is a single ICF classification entry in flattened form.
type Entity struct {
	Code       string   `json:"code"`
	Title      string   `json:"title"`
	Definition string   `json:"definition,omitempty"`
	Inclusions []string `json:"inclusions,omitempty"`
	Exclusions []string `json:"exclusions,omitempty"`
	Parent     string   `json:"parent,omitempty"`
	Children   []string `json:"children,omitempty"`
	URI        string   `json:"uri,omitempty"`
}

// SearchResult is one hit from the flat search endpoint.
type SearchResult struct {
	Code  string  `json:"code"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
	URI   string  `json:"uri,omitempty"`
}

// CategoryView groups one top-level ICF component with sample entries.
type CategoryView struct {
	Category    string         `json:"category"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Results     []SearchResult `json:"results"`
}

// languageValue is the JSON-LD localized string wrapper used throughout
// the ICD-API.
type languageValue struct {
	Value string `json:"@value"`
}

type labeledTerm struct {
	Label languageValue `json:"label"`
}

// stringList accepts either a JSON string or an array of strings. The API
// serializes entities with a single child as a bare string.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = stringList(many)
	return nil
}

// entityPayload mirrors the fields of a linearization entity response that
// the client flattens into an Entity.
type entityPayload struct {
	Code       string        `json:"code"`
	TheCode    string        `json:"theCode"`
	Title      languageValue `json:"title"`
	Definition languageValue `json:"definition"`
	Inclusion  []labeledTerm `json:"inclusion"`
	Exclusion  []labeledTerm `json:"exclusion"`
	Parent     []string      `json:"parent"`
	Child      stringList    `json:"child"`
	ID         string        `json:"@id"`
	AltID      string        `json:"id"`
}

func (p *entityPayload) toEntity() *Entity {
	e := &Entity{
		Code:       p.Code,
		Title:      p.Title.Value,
		Definition: p.Definition.Value,
		Children:   []string(p.Child),
		URI:        p.ID,
	}
	if e.Code == "" {
		e.Code = p.TheCode
	}
	if e.URI == "" {
		e.URI = p.AltID
	}
	for _, term := range p.Inclusion {
		if term.Label.Value != "" {
			e.Inclusions = append(e.Inclusions, term.Label.Value)
		}
	}
	for _, term := range p.Exclusion {
		if term.Label.Value != "" {
			e.Exclusions = append(e.Exclusions, term.Label.Value)
		}
	}
	if len(p.Parent) > 0 {
		e.Parent = p.Parent[0]
	}
	return e
}

type codeInfoPayload struct {
	StemID string `json:"stemId"`
}

type searchHit struct {
	TheCode string  `json:"theCode"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	ID      string  `json:"id"`
}

type searchPayload struct {
	DestinationEntities []searchHit `json:"destinationEntities"`
}
