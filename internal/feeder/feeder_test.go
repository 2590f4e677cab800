package feeder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/torosent/fixfire/internal/fix"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadTextTemplates(t *testing.T) {
	content := `# orders replayed against the UAT gateway
35=D|11=|55=MSFT|54=1|38=100|40=1

35=D|11=|55=AAPL|54=2|38=50|40=2
`
	path := writeTemp(t, "orders.fix", content)

	templates, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("Load() = %d templates, want 2", len(templates))
	}

	if got := templates[0].MsgType(); got != fix.MsgTypeNewOrderSingle {
		t.Errorf("templates[0].MsgType() = %q, want D", got)
	}
	if v, _ := templates[0].Get(55); v != "MSFT" {
		t.Errorf("templates[0] symbol = %q, want MSFT", v)
	}
	if v, _ := templates[1].Get(55); v != "AAPL" {
		t.Errorf("templates[1] symbol = %q, want AAPL", v)
	}
}

func TestLoadAcceptsRawSOHSeparators(t *testing.T) {
	line := strings.ReplaceAll("35=D|55=IBM|38=10", "|", string(fix.SOH))
	path := writeTemp(t, "raw.fix", line+"\n")

	templates, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, _ := templates[0].Get(38); v != "10" {
		t.Errorf("quantity = %q, want 10", v)
	}
}

func TestLoadErrorsCarryLineNumbers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "missing equals",
			content: "35=D|55=MSFT\ngarbage\n",
			wantSub: "line 2",
		},
		{
			name:    "non numeric tag",
			content: "35=D\nab=D|55=X\n",
			wantSub: "line 2",
		},
		{
			name:    "no msgtype",
			content: "55=MSFT|38=100\n",
			wantSub: "no MsgType",
		},
		{
			name:    "duplicate msgtype",
			content: "35=D|35=F|55=MSFT\n",
			wantSub: "duplicate MsgType",
		},
		{
			name:    "empty file",
			content: "# only comments\n\n",
			wantSub: "no templates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad.fix", tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatalf("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Load() error = %q, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestLoadJSONTemplates(t *testing.T) {
	content := `[
		"35=D|11=|55=MSFT|38=100",
		"35=D|11=|55=GOOG|38=25"
	]`
	path := writeTemp(t, "orders.json", content)

	templates, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("Load() = %d templates, want 2", len(templates))
	}
	if v, _ := templates[1].Get(55); v != "GOOG" {
		t.Errorf("templates[1] symbol = %q, want GOOG", v)
	}
}

func TestLoadJSONRejectsNonStringElements(t *testing.T) {
	path := writeTemp(t, "bad.json", `["35=D|55=X", 42]`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load() expected error")
	}
	if !strings.Contains(err.Error(), "template 2") {
		t.Errorf("Load() error = %q, want element index", err)
	}
}

func TestLoadJSONRejectsNonArray(t *testing.T) {
	path := writeTemp(t, "bad.json", `{"templates": []}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() expected error for non-array JSON")
	}
}

func TestParseTemplateKeepsRepeatingGroups(t *testing.T) {
	msg, err := ParseTemplate("35=E|11=|73=2|11=LEG1|11=LEG2")
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	// 35 first, then the three tag-11 occurrences in order.
	count := 0
	for _, f := range msg.Fields() {
		if f.Tag == fix.TagClOrdID {
			count++
		}
	}
	if count != 3 {
		t.Errorf("tag 11 occurrences = %d, want 3", count)
	}
}

func TestParseTemplateTrailingSeparator(t *testing.T) {
	msg, err := ParseTemplate("35=0|")
	if err != nil {
		t.Fatalf("ParseTemplate() error = %v", err)
	}
	if msg.MsgType() != fix.MsgTypeHeartbeat {
		t.Errorf("MsgType() = %q, want 0", msg.MsgType())
	}
}
