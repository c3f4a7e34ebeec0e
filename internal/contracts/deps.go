package contracts

// Dependencies gives an implementation name-based access to the other
// registries without knowing concrete types.
type Dependencies struct {
	Parser    func(name string) (Parser, bool)
	Provider  func(name string) (Provider, bool)
	Agent     func(name string) (Agent, bool)
	Publisher func(name string) (Publisher, bool)
}

// DependencyAware is implemented by modules that use other modules.
type DependencyAware interface {
	SetDependencies(deps Dependencies)
}
