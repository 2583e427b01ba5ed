package channel

import (
	"encoding/json"
	"testing"

	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
)

func msg(category, payload string) Message {
	return Message{Meta: Meta{Category: category}, Message: json.RawMessage(payload)}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name         string
		in           Message
		wantTitle    string
		wantMessage  string
		wantVariant  notify.Variant
		wantCategory string
		wantHidden   bool
	}{
		{
			name:         "recording created",
			in:           msg("ActiveRecordingCreated", `{"recording":{"name":"foo"},"target":"service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi"}`),
			wantTitle:    "Recording Created",
			wantMessage:  "foo created in target: service:jmx:rmi:///jndi/rmi://app:9091/jmxrmi",
			wantVariant:  notify.VariantSuccess,
			wantCategory: "ActiveRecordingCreated",
		},
		{
			name:         "rule disabled",
			in:           msg("RuleUpdated", `{"name":"cpu","enabled":false}`),
			wantTitle:    "Automated Rule Updated",
			wantMessage:  "cpu was disabled",
			wantVariant:  notify.VariantSuccess,
			wantCategory: "RuleUpdated",
		},
		{
			name:         "report failure",
			in:           msg("ReportFailure", `{"recordingName":"r1"}`),
			wantTitle:    "Report Failure",
			wantMessage:  "Report generation failed for r1",
			wantVariant:  notify.VariantDanger,
			wantCategory: "ReportFailure",
		},
		{
			name:         "target lost",
			in:           msg("TargetJvmDiscovery", `{"event":{"kind":"LOST","serviceRef":{"alias":"app","connectUrl":"jmx://app"}}}`),
			wantTitle:    "Target JVM Discovery",
			wantMessage:  `Target "app" disappeared at jmx://app`,
			wantVariant:  notify.VariantInfo,
			wantCategory: notify.CategoryTargetDiscovery,
			wantHidden:   true,
		},
		{
			name:         "client activity",
			in:           msg("WsClientActivity", `{"127.0.0.1":"connected"}`),
			wantTitle:    "WebSocket Client Activity",
			wantMessage:  "Client at 127.0.0.1 connected",
			wantVariant:  notify.VariantInfo,
			wantCategory: notify.CategoryConnectionActivity,
			wantHidden:   true,
		},
		{
			name:         "unknown",
			in:           msg("Foo", `{"bar":1}`),
			wantTitle:    "Foo",
			wantMessage:  `{"bar":1}`,
			wantVariant:  notify.VariantSuccess,
			wantCategory: "Foo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Render(tt.in)
			if n.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", n.Title, tt.wantTitle)
			}
			if n.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", n.Message, tt.wantMessage)
			}
			if n.Variant != tt.wantVariant {
				t.Errorf("Variant = %s, want %s", n.Variant, tt.wantVariant)
			}
			if n.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", n.Category, tt.wantCategory)
			}
			if n.Hidden != tt.wantHidden {
				t.Errorf("Hidden = %v, want %v", n.Hidden, tt.wantHidden)
			}
		})
	}
}

func TestStatusCategoriesAreStatus(t *testing.T) {
	for _, name := range []string{"TargetJvmDiscovery", "WsClientActivity"} {
		if n := Render(msg(name, `{}`)); !notify.IsStatus(n) {
			t.Errorf("%s is not a status notification", name)
		}
	}
}

func TestDecodeMessage(t *testing.T) {
	m, err := DecodeMessage([]byte(`{"meta":{"category":"Foo","type":{"type":"application","subType":"json"}},"message":{"bar":1},"serverTime":42}`))
	if err != nil {
		t.Fatalf("DecodeMessage failed: %v", err)
	}
	if m.Meta.Category != "Foo" || m.Meta.Type.SubType != "json" || m.ServerTime != 42 {
		t.Errorf("decoded %+v", m)
	}

	for _, bad := range []string{"not json", `{"meta":{}}`} {
		if _, err := DecodeMessage([]byte(bad)); err == nil {
			t.Errorf("DecodeMessage(%q) succeeded", bad)
		}
	}
}

func TestSubprotocol(t *testing.T) {
	tests := []struct {
		method auth.Method
		token  string
		want   string
	}{
		{auth.MethodBearer, "abc", "base64url.bearer.authorization.cryostat.abc"},
		{auth.MethodBasic, "abc", "basic.authorization.cryostat.abc"},
		{auth.MethodNone, "abc", ""},
		{auth.MethodBasic, "", ""},
		{auth.MethodUnknown, "abc", ""},
	}
	for _, tt := range tests {
		if got := Subprotocol(tt.method, tt.token); got != tt.want {
			t.Errorf("Subprotocol(%s, %q) = %q, want %q", tt.method, tt.token, got, tt.want)
		}
	}
}

func TestCloseCodeString(t *testing.T) {
	tests := map[CloseCode]string{
		CloseNone:       "None",
		LoggedOut:       "LoggedOut",
		ProtocolFailure: "ProtocolFailure",
		InternalError:   "InternalError",
		Unknown:         "Unknown",
		CloseCode(4000): "Unknown",
	}
	for code, want := range tests {
		if got := code.String(); got != want {
			t.Errorf("CloseCode(%d).String() = %q, want %q", int(code), got, want)
		}
	}
}
