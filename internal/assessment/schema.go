package assessment

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// SchemaName identifies one of the embedded JSON Schemas.
type SchemaName string

const (
	SchemaConsolidated   SchemaName = "consolidated"
	SchemaResult         SchemaName = "result"
	SchemaCategory       SchemaName = "category"
	SchemaOverall        SchemaName = "overall"
	SchemaResumeDocument SchemaName = "resume_document"
)

// SchemaError reports a document that does not satisfy its schema.
type SchemaError struct {
	Schema   SchemaName
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s validation failed: %s", e.Schema, strings.Join(e.Problems, "; "))
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[SchemaName]*gojsonschema.Schema{}
)

// SchemaFor returns the schema used to validate the AI output of a stage.
func SchemaFor(stage Stage) SchemaName {
	switch stage {
	case StageConsolidated:
		return SchemaConsolidated
	case StageResumeDocument:
		return SchemaResumeDocument
	case StageOverall:
		return SchemaOverall
	default:
		return SchemaCategory
	}
}

// SchemaText returns the raw schema document, used verbatim in prompts.
func SchemaText(name SchemaName) (string, error) {
	data, err := schemaFiles.ReadFile("schemas/" + string(name) + ".json")
	if err != nil {
		return "", fmt.Errorf("schema %s: %w", name, err)
	}
	return string(data), nil
}

func compiled(name SchemaName) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[name]; ok {
		return s, nil
	}
	text, err := SchemaText(name)
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	schemaCache[name] = s
	return s, nil
}

// ValidateJSON validates a raw JSON document against the named schema.
func ValidateJSON(name SchemaName, raw []byte) error {
	return validate(name, gojsonschema.NewBytesLoader(raw))
}

// Validate validates a Go value (marshaled to JSON) against the named schema.
func Validate(name SchemaName, doc any) error {
	return validate(name, gojsonschema.NewGoLoader(doc))
}

func validate(name SchemaName, loader gojsonschema.JSONLoader) error {
	s, err := compiled(name)
	if err != nil {
		return err
	}
	res, err := s.Validate(loader)
	if err != nil {
		return &SchemaError{Schema: name, Problems: []string{err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Schema: name, Problems: problems}
}
