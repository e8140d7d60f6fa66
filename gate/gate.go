// Package gate decides whether configuration elements guarded by if and
// unless conditions are included, the way a launch file loader does.
//
// A Gate evaluates conditions through a conditional.Cache, coerces the
// results to booleans with Truth, and records each decision with structured
// logging, OpenTelemetry tracing, and OpenTelemetry metrics. All of the
// observability is opt-in through Options and falls back to the global
// OpenTelemetry providers and no logging.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jbohren-forks/conditional"
)

// DefaultCacheSize is the size of the expression cache a Gate creates when
// none is given with WithCache.
const DefaultCacheSize = 256

// scope is the instrumentation scope name for traces and metrics.
const scope = "github.com/jbohren-forks/conditional/gate"

// ErrBothConditions is returned for a Condition with both If and Unless set.
var ErrBothConditions = errors.New("gate: if and unless are mutually exclusive")

// Condition is the pair of guard attributes on a configuration element. At
// most one of If and Unless may be set. The zero Condition always includes.
type Condition struct {
	// If includes the element when its expression is true.
	If string
	// Unless includes the element when its expression is false.
	Unless string
}

// Validate checks that at most one attribute is set.
func (c Condition) Validate() error {
	if c.If != "" && c.Unless != "" {
		return ErrBothConditions
	}
	return nil
}

// attr returns the name and expression of the set attribute, or two empty
// strings for the zero Condition.
func (c Condition) attr() (string, string) {
	switch {
	case c.If != "":
		return "if", c.If
	case c.Unless != "":
		return "unless", c.Unless
	default:
		return "", ""
	}
}

// Policy selects what a Gate does when a condition fails to evaluate.
type Policy int

const (
	// Abort returns the failure to the caller as a *ConditionError.
	Abort Policy = iota
	// Exclude logs the failure and treats the element as excluded.
	Exclude
)

func (p Policy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Exclude:
		return "exclude"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "abort":
		return Abort, nil
	case "exclude":
		return Exclude, nil
	default:
		return Abort, fmt.Errorf("gate: unknown policy %q", s)
	}
}

type config struct {
	cache  *conditional.Cache
	logger *slog.Logger
	policy Policy
	tp     trace.TracerProvider
	mp     metric.MeterProvider
}

// Option configures a Gate.
type Option func(*config)

// WithCache sets the expression cache. Gates may share a cache.
func WithCache(c *conditional.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithLogger sets the logger for decisions and failures.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithPolicy sets the failure policy. The default is Abort.
func WithPolicy(p Policy) Option {
	return func(cfg *config) {
		cfg.policy = p
	}
}

// WithTracerProvider sets the tracer provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tp = tp
	}
}

// WithMeterProvider sets the meter provider instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.mp = mp
	}
}

// Gate evaluates conditions. A Gate is safe for concurrent use.
type Gate struct {
	cache   *conditional.Cache
	logger  *slog.Logger
	policy  Policy
	tracer  trace.Tracer
	metrics *gateMetrics
}

// New creates a Gate.
func New(opts ...Option) (*Gate, error) {
	cfg := config{policy: Abort}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cache == nil {
		c, err := conditional.NewCache(DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		cfg.cache = c
	}
	if cfg.tp == nil {
		cfg.tp = otel.GetTracerProvider()
	}
	if cfg.mp == nil {
		cfg.mp = otel.GetMeterProvider()
	}
	m, err := newGateMetrics(cfg.mp.Meter(scope))
	if err != nil {
		return nil, fmt.Errorf("gate: creating metrics: %w", err)
	}
	return &Gate{
		cache:   cfg.cache,
		logger:  cfg.logger,
		policy:  cfg.policy,
		tracer:  cfg.tp.Tracer(scope),
		metrics: m,
	}, nil
}

// Policy returns the gate's failure policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Include reports whether an element guarded by c is included when its
// parameters come from env. The zero Condition is always included.
//
// If the condition does not parse, does not evaluate, or does not give a
// boolean, then under Abort the error is a *ConditionError, and under Exclude
// the failure is logged and the element is excluded. A Condition with both
// attributes set is an error under either policy.
func (g *Gate) Include(ctx context.Context, c Condition, env conditional.Env) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	attr, src := c.attr()
	if attr == "" {
		return true, nil
	}
	ctx, span := g.startSpan(ctx, attr, src)
	done := timedOperation()
	ok, err := g.decide(src, env, attr == "unless")
	g.metrics.record(ctx, attr, ok, done(), err)
	endSpan(span, ok, err)
	if err != nil {
		err = &ConditionError{Attr: attr, Expr: src, Err: err}
		logConditionError(ctx, g.logger, attr, src, g.policy, err)
		if g.policy == Exclude {
			return false, nil
		}
		return false, err
	}
	logDecision(g.logger, attr, src, ok)
	return ok, nil
}

func (g *Gate) decide(src string, env conditional.Env, invert bool) (bool, error) {
	v, err := g.cache.Eval(src, env)
	if err != nil {
		return false, err
	}
	b, err := Truth(v)
	if err != nil {
		return false, err
	}
	return b != invert, nil
}

// Truth converts an evaluation result to a boolean the way launch file
// attributes are read. Bools are used as is. The Ints 0 and 1 and the strings
// "true", "false", "1", and "0" in any case are accepted. Anything else is a
// *NotBoolError.
func Truth(v conditional.Value) (bool, error) {
	switch v := v.(type) {
	case conditional.Bool:
		return bool(v), nil
	case conditional.Int:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case conditional.Str:
		switch strings.ToLower(string(v)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
	}
	return false, &NotBoolError{Value: v}
}

// NotBoolError is an error returned when a condition gives a value that is
// not a boolean.
type NotBoolError struct {
	Value conditional.Value
}

func (err *NotBoolError) Error() string {
	if err.Value == nil {
		return "gate: condition has no value"
	}
	return fmt.Sprintf("gate: %s value %q is not a boolean", err.Value.Kind(), err.Value.String())
}

// ConditionError is an error returned when a condition fails to evaluate.
type ConditionError struct {
	// Attr is "if" or "unless".
	Attr string
	// Expr is the condition's expression.
	Expr string
	// Line is the line of the attribute in a document, or 0 if unknown.
	Line int
	// Err is the underlying syntax, evaluation, or coercion error.
	Err error
}

func (err *ConditionError) Error() string {
	if err.Line > 0 {
		return fmt.Sprintf("gate: line %d: %s=%q: %v", err.Line, err.Attr, err.Expr, err.Err)
	}
	return fmt.Sprintf("gate: %s=%q: %v", err.Attr, err.Expr, err.Err)
}

func (err *ConditionError) Unwrap() error {
	return err.Err
}
