package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline package.
var (
	// ErrStageAlreadyRegistered is returned when registering a duplicate stage.
	ErrStageAlreadyRegistered = errors.New("stage already registered")

	// ErrStageNotFound is returned when a stage dependency is not found.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDependencyCycle is returned when stage dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// Registry holds the stages of a run, keyed by name. It is built once per
// job and read-only afterwards.
type Registry struct {
	stages map[string]Stage
	order  []string
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage. Names must be unique.
func (r *Registry) Register(s Stage) error {
	name := s.Name()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRegistered, name)
	}
	r.stages[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get returns a stage by name.
func (r *Registry) Get(name string) (Stage, bool) {
	s, ok := r.stages[name]
	return s, ok
}

// GetOrdered returns the stages with every stage after its dependencies.
// Otherwise registration order is kept.
func (r *Registry) GetOrdered() ([]Stage, error) {
	const (
		unseen = iota
		visiting
		placed
	)
	state := make(map[string]int, len(r.order))
	ordered := make([]Stage, 0, len(r.order))

	var visit func(name, from string) error
	visit = func(name, from string) error {
		st, ok := r.stages[name]
		if !ok {
			return fmt.Errorf("%w: stage %q depends on %q", ErrStageNotFound, from, name)
		}
		switch state[name] {
		case placed:
			return nil
		case visiting:
			return fmt.Errorf("%w: through %q", ErrDependencyCycle, name)
		}
		state[name] = visiting
		for _, dep := range st.Dependencies() {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		state[name] = placed
		ordered = append(ordered, st)
		return nil
	}

	for _, name := range r.order {
		if err := visit(name, ""); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// Validate reports a missing dependency or a dependency cycle.
func (r *Registry) Validate() error {
	_, err := r.GetOrdered()
	return err
}

// PageStage returns a registered stage that operates on pages.
func (r *Registry) PageStage(name string) (PageStage, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotFound, name)
	}
	ps, ok := s.(PageStage)
	if !ok {
		return nil, fmt.Errorf("stage %q does not operate on pages", name)
	}
	return ps, nil
}

// StageOptions configures the concrete stages.
type StageOptions struct {
	ImageSize       string
	ValidateOutline bool
	ValidateNoColor bool
	EnhanceScale    int
	MarginPercent   float64
}

// NewStageRegistry registers the four stages of a coloring book run. It
// panics if the stage set is inconsistent.
func NewStageRegistry(st Studio, opts StageOptions) *Registry {
	r := NewRegistry()
	for _, s := range []Stage{
		&PagePlanStage{Studio: st},
		&PromptStage{Studio: st},
		&ImageStage{
			Studio:          st,
			Size:            opts.ImageSize,
			ValidateOutline: opts.ValidateOutline,
			ValidateNoColor: opts.ValidateNoColor,
		},
		&EnhanceStage{Studio: st, Scale: opts.EnhanceScale, MarginPercent: opts.MarginPercent},
	} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	if err := r.Validate(); err != nil {
		panic(err)
	}
	return r
}
