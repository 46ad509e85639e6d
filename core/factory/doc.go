// Package factory provides a small generic registry used to instantiate
// pluggable components, such as solver backends or metrics sinks, from
// configuration. A component is selected by a type string and configured by a
// map of raw settings that the factory decodes into its own typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[milp.Solver]()
//	reg.Register("bnb", func(conf map[string]any) (milp.Solver, error) {
//	    var c struct{ MaxNodes int `json:"max_nodes"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newBranchAndBound(c.MaxNodes), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "bnb", Conf: map[string]any{"max_nodes": 5000}})
package factory
