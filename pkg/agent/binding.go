package agent

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sort"
	"sync"
)

// Runner is the entry point of tasks that report failures.
type Runner interface {
	Run(ctx context.Context) error
}

// Executor is the entry point of tasks that only signal failures by
// panicking.
type Executor interface {
	Execute(ctx context.Context)
}

// Configurable tasks receive the params of their agent configuration before
// Init.
type Configurable interface {
	Configure(params map[string]string) error
}

type Initializer interface {
	Init() error
}

// Declarer marks a task type that configures an agent by itself. The
// explicit agent listing takes precedence over declared agents for the same
// task type.
type Declarer interface {
	Declare() Spec
}

type Catalog struct {
	lock  *sync.RWMutex
	types map[string]reflect.Type
}

func NewCatalog() *Catalog {
	return &Catalog{
		lock:  new(sync.RWMutex),
		types: make(map[string]reflect.Type),
	}
}

func typeOf(prototype any) (reflect.Type, error) {
	if prototype == nil {
		return nil, fmt.Errorf("%w: nil task prototype", ErrConfiguration)
	}
	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t, nil
}

// Register associates a task type name with the type of prototype. Pointer
// prototypes register their element type.
func (c *Catalog) Register(name string, prototype any) error {
	t, err := typeOf(prototype)
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.types[name]; ok {
		return fmt.Errorf("%w: task type %q already registered", ErrConfiguration, name)
	}
	c.types[name] = t
	return nil
}

// Replace swaps the type registered under name. Agents already built keep
// their binding until they are reset.
func (c *Catalog) Replace(name string, prototype any) error {
	t, err := typeOf(prototype)
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.types[name] = t
	return nil
}

func (c *Catalog) Lookup(name string) (reflect.Type, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	t, ok := c.types[name]
	return t, ok
}

func (c *Catalog) Names() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()

	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declared returns the agent specs declared by registered task types, with
// Task filled in with the registered name.
func (c *Catalog) Declared() []Spec {
	var specs []Spec
	for _, name := range c.Names() {
		t, ok := c.Lookup(name)
		if !ok {
			continue
		}
		if !instantiable(t) {
			continue
		}
		declarer, ok := reflect.New(t).Interface().(Declarer)
		if !ok {
			continue
		}
		spec := declarer.Declare()
		spec.Task = name
		if spec.Name == "" {
			spec.Name = name
		}
		specs = append(specs, spec)
	}
	return specs
}

func instantiable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return false
	}
	return true
}

// Bind resolves the task type name into a fresh, configured task instance.
func (c *Catalog) Bind(name string, params map[string]string) (*Binding, error) {
	t, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown task type %q", ErrConfiguration, name)
	}
	if !instantiable(t) {
		return nil, fmt.Errorf("%w: task type %q (%s) cannot be instantiated", ErrConfiguration, name, t)
	}

	task := reflect.New(t).Interface()
	runner, isRunner := task.(Runner)
	executor, isExecutor := task.(Executor)
	switch {
	case isRunner && isExecutor:
		return nil, fmt.Errorf("%w: task type %q has ambiguous entry points", ErrConfiguration, name)
	case !isRunner && !isExecutor:
		return nil, fmt.Errorf("%w: task type %q has no entry point", ErrConfiguration, name)
	}

	if configurable, ok := task.(Configurable); ok {
		values := make(map[string]string, len(params))
		for k, v := range params {
			values[k] = v
		}
		if err := configurable.Configure(values); err != nil {
			return nil, fmt.Errorf("%w: cannot configure task %q: %s", ErrConfiguration, name, err)
		}
	}
	if initializer, ok := task.(Initializer); ok {
		if err := initializer.Init(); err != nil {
			return nil, fmt.Errorf("%w: cannot initialize task %q: %s", ErrConfiguration, name, err)
		}
	}

	b := &Binding{task: name, typ: t}
	if isRunner {
		b.invoke = runner.Run
	} else {
		b.invoke = func(ctx context.Context) error {
			executor.Execute(ctx)
			return nil
		}
	}
	return b, nil
}

// Binding is a resolved task instance owned by one agent.
type Binding struct {
	task   string
	typ    reflect.Type
	invoke func(ctx context.Context) error
}

func (b *Binding) Task() string {
	return b.task
}

func (b *Binding) Type() reflect.Type {
	return b.typ
}

func (b *Binding) Invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{Agent: Name(ctx), Panic: r}
			Logger(ctx).Sugar().Debugf("task panic stack: %s", debug.Stack())
		}
	}()

	if err := b.invoke(ctx); err != nil {
		return &TaskError{Agent: Name(ctx), Err: err}
	}
	return nil
}
