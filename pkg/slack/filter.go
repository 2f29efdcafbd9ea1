package slack

import (
	"fmt"
	"strings"

	"github.com/oursky/agent-manager/pkg/agent"
	"github.com/oursky/agent-manager/pkg/utils/array"
	"github.com/samber/lo"
)

// DefaultEvents are notified to channels subscribed without filters.
var DefaultEvents = []agent.EventType{agent.EventStuck, agent.EventRunFailed}

var knownEvents = []agent.EventType{
	agent.EventAdded,
	agent.EventRemoved,
	agent.EventReset,
	agent.EventStarted,
	agent.EventStopped,
	agent.EventStuck,
	agent.EventRunCompleted,
	agent.EventRunFailed,
}

// MessageFilterLayer passes events of the listed types from the listed
// agents. An empty list matches anything.
type MessageFilterLayer struct {
	Agents []string          `json:"agents,omitempty"`
	Events []agent.EventType `json:"events,omitempty"`
}

// MessageFilter passes an event when any of its layers does. Without layers
// only DefaultEvents pass.
type MessageFilter struct {
	Layers []MessageFilterLayer `json:"layers,omitempty"`
}

func (l MessageFilterLayer) Pass(e agent.Event) bool {
	if len(l.Events) > 0 && !lo.Contains(l.Events, e.Type) {
		return false
	}
	if len(l.Agents) > 0 && !lo.Contains(l.Agents, e.Agent) {
		return false
	}
	return true
}

func (f MessageFilter) Any(e agent.Event) bool {
	if len(f.Layers) == 0 {
		return lo.Contains(DefaultEvents, e.Type)
	}
	return lo.SomeBy(f.Layers, func(l MessageFilterLayer) bool { return l.Pass(e) })
}

func (l MessageFilterLayer) String() string {
	agents := "all agents"
	if len(l.Agents) > 0 {
		agents = strings.Join(l.Agents, ", ")
	}
	events := "all events"
	if len(l.Events) > 0 {
		events = strings.Join(lo.Map(l.Events, func(e agent.EventType, _ int) string { return string(e) }), ", ")
	}
	return fmt.Sprintf("%s of %s", events, agents)
}

func (f MessageFilter) String() string {
	if len(f.Layers) == 0 {
		return MessageFilterLayer{Events: DefaultEvents}.String()
	}
	return strings.Join(lo.Map(f.Layers, func(l MessageFilterLayer, _ int) string { return l.String() }), "; ")
}

func parseEvents(text string) ([]agent.EventType, error) {
	if text == "" {
		return nil, nil
	}

	events := lo.Map(strings.Split(text, ","), func(s string, _ int) agent.EventType {
		return agent.EventType(strings.TrimSpace(s))
	})
	unsupported := lo.Filter(events, func(e agent.EventType, _ int) bool { return !lo.Contains(knownEvents, e) })
	if len(unsupported) > 0 {
		return nil, fmt.Errorf("unsupported events: %s", strings.Join(lo.Map(unsupported, func(e agent.EventType, _ int) string { return string(e) }), ", "))
	}
	if array.HasDuplicates(events) {
		return nil, fmt.Errorf("duplicated events in %q", text)
	}
	return events, nil
}

// NewFilter parses filter layers of the forms "event1,event2" and
// "agents:name1,name2[:event1,event2]".
func NewFilter(layers []string) (MessageFilter, error) {
	filter := MessageFilter{}
	if array.HasDuplicates(layers) {
		return filter, fmt.Errorf("duplicated filter layers")
	}

	for _, layer := range layers {
		parts := strings.Split(layer, ":")

		var l MessageFilterLayer
		var err error
		switch {
		case len(parts) == 1:
			l.Events, err = parseEvents(parts[0])
		case parts[0] == "agents" && len(parts) <= 3:
			if parts[1] == "" {
				return filter, fmt.Errorf("invalid filter %q: no agents listed", layer)
			}
			l.Agents = array.Unique(strings.Split(parts[1], ","))
			if len(parts) == 3 {
				l.Events, err = parseEvents(parts[2])
			}
		default:
			return filter, fmt.Errorf("invalid filter %q: use event1,event2 or agents:name1,name2:event1,event2", layer)
		}
		if err != nil {
			return filter, fmt.Errorf("invalid filter %q: %w", layer, err)
		}

		filter.Layers = append(filter.Layers, l)
	}

	return filter, nil
}
