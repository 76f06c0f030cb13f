// Package health checks the target application's health endpoint, both as
// rendered in the browser and over plain HTTP before a run starts.
package health

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xeipuuv/gojsonschema"
)

// bodySchema is the shape a healthy JSON reply must have
const bodySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["status", "timestamp"],
  "properties": {
    "status": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(bodySchema)

// ContractError lists every way a health reply deviated from the contract
type ContractError struct {
	Problems []string
}

func (e *ContractError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// BodyText returns the visible text of a rendered page. Browsers wrap JSON
// replies in a minimal HTML document; plain text is returned unchanged.
func BodyText(source string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return source
	}
	text := strings.TrimSpace(doc.Find("body").Text())
	if text == "" {
		return source
	}
	return text
}

// CheckBody verifies a health reply: it mentions "status" and token, carries
// a "timestamp", and its braces are present and balanced. Replies that parse
// as JSON are also validated against the expected object shape.
func CheckBody(source, token string) error {
	text := BodyText(source)
	var problems []string

	if !strings.Contains(text, "status") || !strings.Contains(text, token) {
		problems = append(problems, fmt.Sprintf("should return status %s", token))
	}
	if !strings.Contains(text, "timestamp") {
		problems = append(problems, "should include timestamp")
	}
	open, closing := strings.Count(text, "{"), strings.Count(text, "}")
	if open == 0 || open != closing {
		problems = append(problems, fmt.Sprintf("should return JSON format (found %d '{' and %d '}')", open, closing))
	}

	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(trimmed))
		if err != nil {
			problems = append(problems, "schema validation: "+err.Error())
		} else if !res.Valid() {
			for _, e := range res.Errors() {
				problems = append(problems, e.String())
			}
		}
	}

	if len(problems) > 0 {
		return &ContractError{Problems: problems}
	}
	return nil
}
