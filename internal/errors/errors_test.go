package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "auth error",
			code:    "E100",
			wantMsg: "Authentication rejected",
			wantCat: CategoryAuth,
		},
		{
			name:    "target error",
			code:    "E200",
			wantMsg: "Target JMX authentication required",
			wantCat: CategoryTarget,
		},
		{
			name:    "channel error",
			code:    "E301",
			wantMsg: "WebSocket connection failed",
			wantCat: CategoryChannel,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryConfig, "port %d out of range", 70000)
	if err.Message != "port 70000 out of range" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != "port 70000 out of range" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapAndIs(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := New("E300").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !Is(err, "E300") {
		t.Error("Is should match the code")
	}
	if Is(err, "E301") {
		t.Error("Is should not match another code")
	}

	outer := fmt.Errorf("lookup: %w", err)
	if !Is(outer, "E300") {
		t.Error("Is should walk the chain")
	}
	if got := CategoryOf(outer); got != CategoryChannel {
		t.Errorf("CategoryOf = %q, want %q", got, CategoryChannel)
	}
	if got := CategoryOf(cause); got != CategoryApplication {
		t.Errorf("CategoryOf(plain) = %q, want %q", got, CategoryApplication)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() = %q, want cause included", err.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E400") != nil {
		t.Error("FromError(nil) should be nil")
	}

	ce := New("E201")
	if got := FromError(fmt.Errorf("wrapped: %w", ce), "E400"); got != ce {
		t.Error("FromError should return the existing ConsoleError")
	}

	plain := stderrors.New("boom")
	got := FromError(plain, "E400")
	if got.Code != "E400" || got.Wrapped != plain {
		t.Errorf("FromError = %+v", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E200").
		WithStatus(427).
		WithDetail("target service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi")

	out := err.Format()
	for _, want := range []string{"E200", "Target JMX authentication required", "HTTP 427", "jmxrmi", "Hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if got := err.FormatCompact(); !strings.HasPrefix(got, "E200: Target JMX authentication required (") {
		t.Errorf("FormatCompact() = %q", got)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E400").WithStatus(500).WithDetail("internal").Wrap(stderrors.New("boom"))

	var decoded map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &decoded); e != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", e)
	}
	if decoded["code"] != "E400" {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["status"] != float64(500) {
		t.Errorf("status = %v", decoded["status"])
	}
	if decoded["cause"] != "boom" {
		t.Errorf("cause = %v", decoded["cause"])
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, stderrors.New("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("PrintError(plain) = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, New("E502"))
	if !strings.Contains(buf.String(), "Configuration file not found") {
		t.Errorf("PrintError(console) = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line too long: %q", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistryCategoriesMatchCodeRanges(t *testing.T) {
	want := map[byte]Category{
		'1': CategoryAuth,
		'2': CategoryTarget,
		'3': CategoryChannel,
		'4': CategoryApplication,
		'5': CategoryConfig,
	}
	for _, code := range GetAllCodes() {
		tmpl, _ := GetTemplate(code)
		if tmpl.Category != want[code[1]] {
			t.Errorf("%s has category %q, want %q", code, tmpl.Category, want[code[1]])
		}
	}
}
