package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// File is an offline market list:
//
//	coin: abc-token
//	expected_tge: "2024-03-01"
//	markets:
//	  - exchange: Binance
//	    base: ABC
//	    quote: USDT
type File struct {
	Coin        string    `yaml:"coin"`
	ExpectedTGE string    `yaml:"expected_tge"`
	Markets     []Listing `yaml:"markets"`
}

// fileSchema 约束离线市场文件的结构。
const fileSchema = `{
  "type": "object",
  "required": ["markets"],
  "additionalProperties": false,
  "properties": {
    "coin": {"type": "string"},
    "expected_tge": {"type": ["string", "integer"]},
    "markets": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["exchange", "base", "quote"],
        "additionalProperties": false,
        "properties": {
          "exchange": {"type": "string", "minLength": 1},
          "base": {"type": "string", "minLength": 1},
          "quote": {"type": "string", "minLength": 1},
          "volume": {"type": "number", "minimum": 0},
          "connector": {"type": "string"},
          "disabled_reason": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func compiledFileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("markets.json", strings.NewReader(fileSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("markets.json")
	})
	return schemaCompiled, schemaErr
}

// LoadFile reads, schema-checks and decodes a markets file.
func LoadFile(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read markets file: %w", err)
	}
	if err := validateFile(raw); err != nil {
		return File{}, fmt.Errorf("invalid markets file %s: %w", path, err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse markets file %s: %w", path, err)
	}
	for i, m := range f.Markets {
		if strings.TrimSpace(m.ExchangeName) == "" || strings.TrimSpace(m.Base) == "" || strings.TrimSpace(m.Quote) == "" {
			return File{}, fmt.Errorf("markets[%d]: exchange, base and quote are required", i)
		}
	}
	return f, nil
}

// validateFile round-trips YAML through JSON so the schema sees plain values.
func validateFile(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	schema, err := compiledFileSchema()
	if err != nil {
		return err
	}
	return schema.Validate(v)
}

// ExpectedTGEMillis parses expected_tge as epoch milliseconds, a date or an
// RFC 3339 time. Empty means unknown.
func (f File) ExpectedTGEMillis() (*int64, error) {
	return ParseTime(f.ExpectedTGE)
}

// ParseTime accepts epoch milliseconds, "2006-01-02" or RFC 3339.
func ParseTime(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &ms, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		ms := t.UnixMilli()
		return &ms, nil
	}
	if ms, ok := parseTradeTime(s); ok {
		return &ms, nil
	}
	return nil, fmt.Errorf("unrecognised time %q", s)
}
