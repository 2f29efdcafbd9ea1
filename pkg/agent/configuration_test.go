package agent

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		text     string
		expected time.Duration
	}{
		{"90 seconds", 90 * time.Second},
		{"1", time.Minute},
		{"5m", 5 * time.Minute},
		{"2 hours", 2 * time.Hour},
		{"1 second", time.Second},
		{"30sec", 30 * time.Second},
		{"1m30s", 90 * time.Second},
	}
	for _, c := range cases {
		d, err := ParseInterval(c.text)
		assert.Equal(t, err, nil)
		assert.Equal(t, d, c.expected)
	}

	for _, text := range []string{"abc", "", "0", "10 fortnights", "-5s", "2147483647 hours"} {
		_, err := ParseInterval(text)
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("ParseInterval(%q) should fail with a configuration error, got %v", text, err)
		}
	}
}

func TestConfiguration(t *testing.T) {
	Convey("Given an agent spec", t, func() {
		spec := Spec{Name: "sync", Task: "probe"}

		Convey("defaults are applied", func() {
			config, err := NewConfiguration(spec)
			So(err, ShouldBeNil)
			So(config.Kind, ShouldEqual, KindTimer)
			So(config.Interval, ShouldEqual, time.Minute)
			So(config.AutomaticallyStarted, ShouldBeTrue)
			So(config.StopTimeout, ShouldEqual, time.Duration(0))
		})
		Convey("daemons ignore the interval", func() {
			spec.Kind = "DAEMON"
			spec.Interval = "abc"
			config, err := NewConfiguration(spec)
			So(err, ShouldBeNil)
			So(config.Interval, ShouldEqual, time.Duration(0))
		})
		Convey("kinds are matched regardless of case", func() {
			spec.Kind = "Daemon"
			config, err := NewConfiguration(spec)
			So(err, ShouldBeNil)
			So(config.Kind, ShouldEqual, KindDaemon)
		})
		Convey("an invalid interval is rejected", func() {
			spec.Interval = "abc"
			_, err := NewConfiguration(spec)
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		})
		Convey("explicit values are kept", func() {
			off := false
			timeout := 3
			spec.AutomaticallyStarted = &off
			spec.StopTimeoutSeconds = &timeout
			spec.Hidden = true
			spec.Params = map[string]string{"url": "http://localhost"}
			config, err := NewConfiguration(spec)
			So(err, ShouldBeNil)
			So(config.AutomaticallyStarted, ShouldBeFalse)
			So(config.StopTimeout, ShouldEqual, 3*time.Second)
			So(config.Hidden, ShouldBeTrue)
			So(config.Params["url"], ShouldEqual, "http://localhost")

			spec.Params["url"] = "changed"
			So(config.Params["url"], ShouldEqual, "http://localhost")
		})
		Convey("a missing name or task is rejected", func() {
			_, err := NewConfiguration(Spec{Task: "probe"})
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
			_, err = NewConfiguration(Spec{Name: "sync"})
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given declared and explicit specs", t, func() {
		declared := []Spec{
			{Name: "heartbeat", Task: "heartbeat", Interval: "1", Hidden: true},
			{Name: "cleanup", Task: "cleanup", Interval: "1 hour"},
		}
		explicit := []Spec{
			{Name: "beat", Task: "heartbeat", Interval: "10 seconds"},
		}

		Convey("the explicit spec replaces the declared one as a whole", func() {
			merged := Merge(declared, explicit)
			So(merged, ShouldHaveLength, 2)
			So(merged[0].Name, ShouldEqual, "cleanup")
			So(merged[1].Name, ShouldEqual, "beat")
			So(merged[1].Hidden, ShouldBeFalse)
			So(merged[1].Interval, ShouldEqual, "10 seconds")
		})
		Convey("declared specs are kept without explicit ones", func() {
			So(Merge(declared, nil), ShouldResemble, declared)
		})
		Convey("invalid specs are reported and skipped", func() {
			configs, err := LoadConfigurations(append(Merge(declared, explicit), Spec{Name: "bad", Task: "x", Interval: "abc"}))
			So(configs, ShouldHaveLength, 2)
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
		})
	})
}
