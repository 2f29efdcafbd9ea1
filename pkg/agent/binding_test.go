package agent

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type ambiguousTask struct{}

func (ambiguousTask) Run(ctx context.Context) error { return nil }
func (ambiguousTask) Execute(ctx context.Context)   {}

type inertTask struct{}

type initTask struct {
	target string
	ready  bool
}

func (t *initTask) Configure(params map[string]string) error {
	t.target = params["target"]
	if t.target == "" {
		return errors.New("target is required")
	}
	return nil
}

func (t *initTask) Init() error {
	t.ready = true
	return nil
}

func (t *initTask) Run(ctx context.Context) error {
	if !t.ready {
		return errors.New("not initialized")
	}
	return nil
}

type declaredTask struct{ probeTask }

func (declaredTask) Declare() Spec {
	return Spec{Interval: "10 seconds", Hidden: true}
}

func TestCatalog(t *testing.T) {
	Convey("Given a catalog", t, func() {
		catalog := NewCatalog()
		So(catalog.Register("ambiguous", ambiguousTask{}), ShouldBeNil)
		So(catalog.Register("inert", &inertTask{}), ShouldBeNil)
		So(catalog.Register("init", initTask{}), ShouldBeNil)
		So(catalog.Register("runner", (*Runner)(nil)), ShouldBeNil)
		So(catalog.Register("panic", panicTask{}), ShouldBeNil)
		So(catalog.Register("declared", declaredTask{}), ShouldBeNil)

		Convey("names are unique", func() {
			err := catalog.Register("init", inertTask{})
			So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
			So(catalog.Names(), ShouldResemble, []string{"ambiguous", "declared", "inert", "init", "panic", "runner"})
		})
		Convey("binding fails on", func() {
			for name, expected := range map[string]string{
				"unknown":   "unknown task type",
				"ambiguous": "ambiguous",
				"inert":     "no entry point",
				"runner":    "cannot be instantiated",
				"init":      "target is required",
			} {
				_, err := catalog.Bind(name, nil)
				So(errors.Is(err, ErrConfiguration), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, expected)
			}
		})
		Convey("a bound task is configured and initialized", func() {
			b, err := catalog.Bind("init", map[string]string{"target": "x"})
			So(err, ShouldBeNil)
			So(b.Task(), ShouldEqual, "init")
			So(b.Invoke(context.Background()), ShouldBeNil)
		})
		Convey("panics become task errors", func() {
			b, err := catalog.Bind("panic", nil)
			So(err, ShouldBeNil)

			err = b.Invoke(context.Background())
			var taskErr *TaskError
			So(errors.As(err, &taskErr), ShouldBeTrue)
			So(taskErr.Panic, ShouldEqual, "boom")
		})
		Convey("replacing a type changes later bindings", func() {
			So(catalog.Replace("inert", initTask{}), ShouldBeNil)
			b, err := catalog.Bind("inert", map[string]string{"target": "x"})
			So(err, ShouldBeNil)
			So(b.Type().Name(), ShouldEqual, "initTask")
		})
		Convey("declared specs carry their task type", func() {
			specs := catalog.Declared()
			So(specs, ShouldHaveLength, 1)
			So(specs[0].Name, ShouldEqual, "declared")
			So(specs[0].Task, ShouldEqual, "declared")
			So(specs[0].Hidden, ShouldBeTrue)
		})
	})
}
