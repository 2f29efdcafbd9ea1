package agent

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oursky/agent-manager/pkg/utils/defaults"
)

const DefaultInterval = time.Minute

// Spec is the declarative form of an agent configuration, as found in the
// [[agents]] listing or returned by a Declarer.
type Spec struct {
	Name                 string `validate:"required"`
	Kind                 string
	Interval             string
	AutomaticallyStarted *bool
	StopTimeoutSeconds   *int `validate:"omitempty,min=0"`
	Hidden               bool
	Task                 string `validate:"required"`
	Params               map[string]string
}

// Configuration is a validated, immutable agent description.
type Configuration struct {
	Name                 string
	Kind                 Kind
	Interval             time.Duration
	AutomaticallyStarted bool
	// StopTimeout bounds the wait for an in-flight cycle on stop. Zero means
	// unbounded.
	StopTimeout time.Duration
	Hidden      bool
	Task        string
	Params      map[string]string
}

func NewConfiguration(spec Spec) (Configuration, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return Configuration{}, fmt.Errorf("%w: agent name is required", ErrConfiguration)
	}
	if spec.Task == "" {
		return Configuration{}, fmt.Errorf("%w: agent %s: task is required", ErrConfiguration, spec.Name)
	}

	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return Configuration{}, fmt.Errorf("agent %s: %w", spec.Name, err)
	}

	var interval time.Duration
	if kind == KindTimer {
		interval = DefaultInterval
		if spec.Interval != "" {
			interval, err = ParseInterval(spec.Interval)
			if err != nil {
				return Configuration{}, fmt.Errorf("agent %s: %w", spec.Name, err)
			}
		}
	}

	stopTimeout := defaults.Value(spec.StopTimeoutSeconds, 0)
	if stopTimeout < 0 {
		return Configuration{}, fmt.Errorf("%w: agent %s: negative stop timeout", ErrConfiguration, spec.Name)
	}

	params := make(map[string]string, len(spec.Params))
	for k, v := range spec.Params {
		params[k] = v
	}

	return Configuration{
		Name:                 spec.Name,
		Kind:                 kind,
		Interval:             interval,
		AutomaticallyStarted: defaults.Value(spec.AutomaticallyStarted, true),
		StopTimeout:          time.Duration(stopTimeout) * time.Second,
		Hidden:               spec.Hidden,
		Task:                 spec.Task,
		Params:               params,
	}, nil
}

var intervalPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-zA-Z]*)\s*$`)

// ParseInterval parses "<integer>[ ]<unit>" where unit is one of s, sec,
// second(s), m, min, minute(s), h, hour(s). A bare integer counts minutes.
// Go duration strings are accepted as well.
func ParseInterval(text string) (time.Duration, error) {
	match := intervalPattern.FindStringSubmatch(text)
	if match == nil {
		d, err := time.ParseDuration(strings.TrimSpace(text))
		if err != nil {
			return 0, fmt.Errorf("%w: invalid interval %q", ErrConfiguration, text)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%w: interval must be positive: %q", ErrConfiguration, text)
		}
		return d, nil
	}

	value, err := strconv.ParseInt(match[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid interval %q", ErrConfiguration, text)
	}

	var unit time.Duration
	switch strings.ToLower(match[2]) {
	case "s", "sec", "secs", "second", "seconds":
		unit = time.Second
	case "", "m", "min", "mins", "minute", "minutes":
		unit = time.Minute
	case "h", "hour", "hours":
		unit = time.Hour
	default:
		return 0, fmt.Errorf("%w: unknown interval unit %q", ErrConfiguration, match[2])
	}

	if value <= 0 {
		return 0, fmt.Errorf("%w: interval must be positive: %q", ErrConfiguration, text)
	}
	if value > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: interval too large: %q", ErrConfiguration, text)
	}
	return time.Duration(value) * unit, nil
}

// Merge combines declared specs with the explicit listing. An explicit spec
// replaces every declared spec of the same task type as a whole.
func Merge(declared []Spec, explicit []Spec) []Spec {
	tasks := make(map[string]struct{}, len(explicit))
	for _, s := range explicit {
		tasks[s.Task] = struct{}{}
	}

	var specs []Spec
	for _, s := range declared {
		if _, ok := tasks[s.Task]; ok {
			continue
		}
		specs = append(specs, s)
	}
	return append(specs, explicit...)
}

// LoadConfigurations validates every spec. Invalid specs are reported in the
// joined error and skipped.
func LoadConfigurations(specs []Spec) ([]Configuration, error) {
	var configs []Configuration
	var errs []error
	for _, s := range specs {
		config, err := NewConfiguration(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		configs = append(configs, config)
	}
	return configs, errors.Join(errs...)
}
