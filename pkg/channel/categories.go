package channel

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cryostatio/cryostat-sub001/pkg/notify"
)

// Category describes how a push category becomes a notification.
type Category struct {
	Title   string
	Variant notify.Variant
	Hidden  bool
	// Notification is the notification category. Empty means the push
	// category itself.
	Notification string
	Body         func(Message) string
}

// Categories is the static category table.
var Categories = map[string]Category{
	"ActiveRecordingCreated": {
		Title:   "Recording Created",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s created in target: %s", m.field("recording", "name"), m.field("target"))
		},
	},
	"ActiveRecordingStopped": {
		Title:   "Recording Stopped",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was stopped", m.field("recording", "name"))
		},
	},
	"ActiveRecordingSaved": {
		Title:   "Recording Saved",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was archived", m.field("recording", "name"))
		},
	},
	"ActiveRecordingDeleted": {
		Title:   "Recording Deleted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was deleted", m.field("recording", "name"))
		},
	},
	"SnapshotCreated": {
		Title:   "Snapshot Created",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was created in target: %s", m.field("recording", "name"), m.field("target"))
		},
	},
	"SnapshotDeleted": {
		Title:   "Snapshot Deleted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was deleted", m.field("recording", "name"))
		},
	},
	"ArchivedRecordingCreated": {
		Title:   "Archived Recording Uploaded",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was uploaded into archives", m.field("recording", "name"))
		},
	},
	"ArchivedRecordingDeleted": {
		Title:   "Archived Recording Deleted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was deleted", m.field("recording", "name"))
		},
	},
	"TemplateUploaded": {
		Title:   "Template Created",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was created", m.field("template", "name"))
		},
	},
	"TemplateDeleted": {
		Title:   "Template Deleted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was deleted", m.field("template", "name"))
		},
	},
	"ProbeTemplateUploaded": {
		Title:   "Probe Template Created",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was created", m.field("probeTemplate"))
		},
	},
	"ProbeTemplateApplied": {
		Title:   "Probe Template Inserted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was inserted into target: %s", m.field("probeTemplate"), m.field("targetId"))
		},
	},
	"ProbeTemplateDeleted": {
		Title:   "Probe Template Deleted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was deleted", m.field("probeTemplate"))
		},
	},
	"ProbesRemoved": {
		Title:   "Probes Removed",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("Probes successfully removed from %s", m.field("target"))
		},
	},
	"RuleCreated": {
		Title:   "Automated Rule Created",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was created", m.field("name"))
		},
	},
	"RuleUpdated": {
		Title:   "Automated Rule Updated",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			state := "disabled"
			if m.field("enabled") == "true" {
				state = "enabled"
			}
			return fmt.Sprintf("%s was %s", m.field("name"), state)
		},
	},
	"RuleDeleted": {
		Title:   "Automated Rule Deleted",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("%s was deleted", m.field("name"))
		},
	},
	"RecordingMetadataUpdated": {
		Title:   "Recording Metadata Updated",
		Variant: notify.VariantInfo,
		Body: func(m Message) string {
			return fmt.Sprintf("New metadata labels saved for %s", m.field("recordingName"))
		},
	},
	"CredentialsStored": {
		Title:   "Stored Credentials",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("Credentials stored for: %s", m.field("matchExpression"))
		},
	},
	"CredentialsDeleted": {
		Title:   "Deleted Credentials",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("Credentials deleted for: %s", m.field("matchExpression"))
		},
	},
	"ReportSuccess": {
		Title:   "Report Success",
		Variant: notify.VariantSuccess,
		Body: func(m Message) string {
			return fmt.Sprintf("Report generated for %s", m.field("recordingName"))
		},
	},
	"ReportFailure": {
		Title:   "Report Failure",
		Variant: notify.VariantDanger,
		Body: func(m Message) string {
			return fmt.Sprintf("Report generation failed for %s", m.field("recordingName"))
		},
	},
	"TargetJvmDiscovery": {
		Title:        "Target JVM Discovery",
		Variant:      notify.VariantInfo,
		Hidden:       true,
		Notification: notify.CategoryTargetDiscovery,
		Body: func(m Message) string {
			verb := "appeared"
			if m.field("event", "kind") == "LOST" {
				verb = "disappeared"
			}
			return fmt.Sprintf("Target %q %s at %s",
				m.field("event", "serviceRef", "alias"), verb, m.field("event", "serviceRef", "connectUrl"))
		},
	},
	"WsClientActivity": {
		Title:        "WebSocket Client Activity",
		Variant:      notify.VariantInfo,
		Hidden:       true,
		Notification: notify.CategoryConnectionActivity,
		Body: func(m Message) string {
			var activity map[string]string
			if err := json.Unmarshal(m.Message, &activity); err != nil || len(activity) == 0 {
				return m.payload()
			}
			addrs := make([]string, 0, len(activity))
			for addr := range activity {
				addrs = append(addrs, addr)
			}
			sort.Strings(addrs)
			return fmt.Sprintf("Client at %s %s", addrs[0], activity[addrs[0]])
		},
	},
}

// Render turns m into a notification. Unknown categories become a success
// notification titled with the category and carrying the raw payload.
func Render(m Message) notify.Notification {
	c, ok := Categories[m.Meta.Category]
	if !ok {
		return notify.Notification{
			Title:    m.Meta.Category,
			Message:  m.payload(),
			Category: m.Meta.Category,
			Variant:  notify.VariantSuccess,
		}
	}
	category := c.Notification
	if category == "" {
		category = m.Meta.Category
	}
	return notify.Notification{
		Title:    c.Title,
		Message:  c.Body(m),
		Category: category,
		Variant:  c.Variant,
		Hidden:   c.Hidden,
	}
}
