package seriesjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/treefix50/recapadmin/internal/jsonvalue"
)

// Parse decodes JSON text into a candidate record.
func Parse(data []byte) (map[string]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("parse series JSON: empty input")
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse series JSON: %w", err)
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse series JSON: top-level value must be an object")
	}
	return doc, nil
}

// Export renders a stored document in the interchange format. Store
// timestamps are left out; the id and every other field are kept as stored so
// that the file can be re-imported as an update.
func Export(doc map[string]any) ([]byte, error) {
	out := lo.OmitByKeys(doc, []string{"createdAt", "updatedAt"})

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("export series %s: %w", jsonvalue.Format(doc["id"]), err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExportFilename builds the download name for a series export.
func ExportFilename(title string) string {
	slug := strings.Join(strings.Fields(cases.Lower(language.Und).String(title)), "-")
	if slug == "" {
		slug = "series"
	}
	return slug + ".json"
}
