// Package feeder loads message templates from disk.
//
// Two file shapes are accepted. Text files hold one template per line in
// tag=value form, with '|' or a raw SOH byte between fields; '#' starts a
// comment line and blank lines are skipped. Files ending in .json hold a
// JSON array of template strings in the same tag=value form.
//
// Templates keep their field order and duplicate tags, so repeating groups
// and pasted wire captures survive loading. Session-owned fields found in a
// template (BeginString, sequence number, timestamps) are kept; the session
// restamps them at send time.
package feeder

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/torosent/fixfire/internal/fix"
)

// Load reads message templates from path, dispatching on the extension.
func Load(path string) ([]*fix.Message, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return loadJSON(path)
	}
	return loadText(path)
}

func loadText(path string) ([]*fix.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open template file: %w", err)
	}

	var templates []*fix.Message
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		msg, err := ParseTemplate(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		templates = append(templates, msg)
	}

	if len(templates) == 0 {
		return nil, fmt.Errorf("%s: no templates found", path)
	}
	return templates, nil
}

// ParseTemplate parses one tag=value template. Both '|' and SOH are
// accepted as separators; a trailing separator is fine.
func ParseTemplate(text string) (*fix.Message, error) {
	raw := strings.ReplaceAll(text, "|", string(fix.SOH))

	var (
		msgType string
		fields  []fix.Field
	)
	for _, token := range strings.Split(raw, string(fix.SOH)) {
		if token == "" {
			continue
		}
		eq := strings.IndexByte(token, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("field %q: want tag=value", token)
		}
		tag, err := strconv.Atoi(token[:eq])
		if err != nil || tag <= 0 {
			return nil, fmt.Errorf("field %q: tag is not a positive number", token)
		}
		value := token[eq+1:]
		if tag == fix.TagMsgType {
			if msgType != "" {
				return nil, fmt.Errorf("field %q: duplicate MsgType (35)", token)
			}
			msgType = value
			continue
		}
		fields = append(fields, fix.Field{Tag: tag, Value: value})
	}

	if msgType == "" {
		return nil, fmt.Errorf("template has no MsgType (35)")
	}

	msg := fix.NewMessage(msgType)
	for _, f := range fields {
		msg.Append(f.Tag, f.Value)
	}
	return msg, nil
}
