package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonschemav "github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaURL = "https://clearmark.local/schemas/grading-response.json"

// StripCodeFences removes markdown fences and any chatter around the JSON object.
func StripCodeFences(content string) string {
	text := strings.TrimSpace(content)

	if strings.HasPrefix(text, "```") {
		if newline := strings.IndexByte(text, '\n'); newline >= 0 {
			text = text[newline+1:]
		} else {
			text = strings.TrimPrefix(text, "```json")
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSpace(text)
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	if !strings.HasPrefix(text, "{") {
		start := strings.IndexByte(text, '{')
		end := strings.LastIndexByte(text, '}')
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}

	return text
}

// DecodeGradingResult validates raw model output against the response schema and decodes it.
// Every failure wraps ErrAIResponse.
func DecodeGradingResult(content string, schema json.RawMessage) (GradingResult, error) {
	text := StripCodeFences(content)
	if text == "" {
		return GradingResult{}, fmt.Errorf("%w: empty response", ErrAIResponse)
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return GradingResult{}, err
	}

	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	var document interface{}
	if err := decoder.Decode(&document); err != nil {
		return GradingResult{}, fmt.Errorf("%w: parse json: %v", ErrAIResponse, err)
	}

	if err := compiled.Validate(document); err != nil {
		return GradingResult{}, fmt.Errorf("%w: %v", ErrAIResponse, err)
	}

	var result GradingResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return GradingResult{}, fmt.Errorf("%w: decode grading result: %v", ErrAIResponse, err)
	}

	return result, nil
}

func compileSchema(schema json.RawMessage) (*jsonschemav.Schema, error) {
	compiler := jsonschemav.NewCompiler()
	if err := compiler.AddResource(responseSchemaURL, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("load response schema: %w", err)
	}

	compiled, err := compiler.Compile(responseSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	return compiled, nil
}
