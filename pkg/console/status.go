package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cryostatio/cryostat-sub001/pkg/auth"
	"github.com/cryostatio/cryostat-sub001/pkg/channel"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
	"github.com/cryostatio/cryostat-sub001/pkg/session"
	"github.com/cryostatio/cryostat-sub001/pkg/target"
)

// Status paths.
const (
	HealthPath        = "/healthz"
	MetricsPath       = "/metrics"
	NotificationsPath = "/notifications"
	SessionPath       = "/session"
)

// SessionStatus is the JSON body served at SessionPath.
type SessionStatus struct {
	Session    session.Value           `json:"session"`
	Method     auth.Method             `json:"method"`
	Username   string                  `json:"username,omitempty"`
	Connection channel.ConnectionState `json:"connection"`
	Target     target.Target           `json:"target"`
}

// Status returns a snapshot of the session and connection state.
func (c *Console) Status() SessionStatus {
	return SessionStatus{
		Session:    c.state.Get(),
		Method:     c.gateway.Method(),
		Username:   c.gateway.Username(),
		Connection: c.channel.State(),
		Target:     c.link.Selected(),
	}
}

// Handler serves the read-only status view.
//
// GET /notifications accepts a view query parameter: unread, actions,
// status or problems. Without it every notification is returned.
func (c *Console) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.GetHead)
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Method(http.MethodGet, MetricsPath, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	r.Get(SessionPath, func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, c.Status())
	})
	r.Get(NotificationsPath, c.serveNotifications)
	return r
}

func (c *Console) serveNotifications(w http.ResponseWriter, r *http.Request) {
	var ns []notify.Notification
	switch view := r.URL.Query().Get("view"); view {
	case "":
		ns = c.notes.Notifications()
	case "unread":
		ns = c.notes.Unread()
	case "actions":
		ns = c.notes.Actions()
	case "status":
		ns = c.notes.Status()
	case "problems":
		ns = c.notes.Problems()
	default:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "unknown view " + view})
		return
	}
	if ns == nil {
		ns = []notify.Notification{}
	}
	render.JSON(w, r, ns)
}
