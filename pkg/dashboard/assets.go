package dashboard

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/oursky/agent-manager/pkg/agent"
)

//go:embed assets
var assetsFS embed.FS

var funcMap = template.FuncMap{
	"stateClass": func(s agent.State) string {
		return "state-" + strings.ToLower(string(s))
	},
	"since": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return time.Since(*t).Truncate(time.Second).String()
	},
}

func (s *Server) styles(rw http.ResponseWriter, r *http.Request) {
	s.asset(rw, "styles.css", "text/css; charset=utf-8")
}
