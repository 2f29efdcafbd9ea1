package dashboard

import (
	"net/http"
	"strings"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/samber/lo"
)

type dataIndex struct {
	Refresh int
	Agents  []agent.Snapshot
	Counts  map[agent.State]int
	Hidden  int
}

type dataAgent struct {
	Refresh     int
	Agent       agent.Snapshot
	Description string
}

func (s *Server) snapshots() []agent.Snapshot {
	snapshots := s.agents.State().Value()
	if snapshots == nil {
		snapshots = s.agents.DescribeAgents()
	}
	return snapshots
}

func (s *Server) index(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}

	snapshots := s.snapshots()
	showHidden := r.URL.Query().Has("hidden")
	visible := lo.Filter(snapshots, func(a agent.Snapshot, _ int) bool { return showHidden || !a.Hidden })

	data := &dataIndex{
		Refresh: s.refresh,
		Agents:  visible,
		Counts:  lo.CountValuesBy(visible, func(a agent.Snapshot) agent.State { return a.State }),
		Hidden:  len(snapshots) - len(visible),
	}
	s.template(rw, "index.html", data)
}

func (s *Server) agentDetail(rw http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/agents/")
	snapshot, ok := lo.Find(s.snapshots(), func(a agent.Snapshot) bool { return a.Name == name })
	if !ok {
		http.NotFound(rw, r)
		return
	}

	data := &dataAgent{
		Refresh:     s.refresh,
		Agent:       snapshot,
		Description: snapshot.Describe(),
	}
	s.template(rw, "agent.html", data)
}
