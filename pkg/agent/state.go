package agent

import (
	"fmt"
	"strings"
)

type State string

const (
	StateSet     State = "SET"
	StateStarted State = "STARTED"
	StateRunning State = "RUNNING"
	StateStopped State = "STOPPED"
	// StateStuck marks an agent whose stop was requested and whose task was
	// interrupted, but which has not returned yet. It becomes STOPPED as soon
	// as the task returns.
	StateStuck State = "STUCK"
)

var transitions = map[State][]State{
	StateSet:     {StateStarted},
	StateStarted: {StateRunning, StateStopped},
	StateRunning: {StateStarted, StateStopped, StateStuck},
	StateStopped: {StateStarted},
	StateStuck:   {StateStopped},
}

func ValidTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// Active reports whether the agent is armed, i.e. it may run its task.
func (s State) Active() bool {
	return s == StateStarted || s == StateRunning
}

func (s State) Removable() bool {
	return s == StateSet || s == StateStopped
}

type Kind string

const (
	KindTimer  Kind = "TIMER"
	KindDaemon Kind = "DAEMON"
)

func ParseKind(text string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "", string(KindTimer):
		return KindTimer, nil
	case string(KindDaemon):
		return KindDaemon, nil
	}
	return "", fmt.Errorf("%w: unknown agent kind %q", ErrConfiguration, text)
}
