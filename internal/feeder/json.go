package feeder

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/torosent/fixfire/internal/fix"
)

// loadJSON reads a JSON array of template strings.
func loadJSON(path string) ([]*fix.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid JSON", path)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%s: want a JSON array of template strings", path)
	}

	var (
		templates []*fix.Message
		parseErr  error
	)
	index := 0
	root.ForEach(func(_, value gjson.Result) bool {
		index++
		if value.Type != gjson.String {
			parseErr = fmt.Errorf("%s template %d: want a string, got %s", path, index, value.Type)
			return false
		}
		msg, err := ParseTemplate(value.String())
		if err != nil {
			parseErr = fmt.Errorf("%s template %d: %w", path, index, err)
			return false
		}
		templates = append(templates, msg)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if len(templates) == 0 {
		return nil, fmt.Errorf("%s: no templates found", path)
	}
	return templates, nil
}
