package rhifopt

import (
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
)

// Passes returns the RHIF sweep in its fixed order.
func Passes() []pass.Pass[*rhif.Object] {
	return []pass.Pass[*rhif.Object]{
		Precast(),
		pass.Func[*rhif.Object]{Name: "precompute discriminants", F: PrecomputeDiscriminants},
		pass.Func[*rhif.Object]{Name: "constant propagation", F: ConstantPropagation},
		pass.Func[*rhif.Object]{Name: "remove extra registers", F: RemoveExtraRegisters},
		pass.Func[*rhif.Object]{Name: "dead code elimination", F: DeadCodeElimination},
	}
}

// Precast is the PrecastLiterals pass.
func Precast() pass.Pass[*rhif.Object] {
	return pass.Func[*rhif.Object]{Name: "precast literals in binops", F: PrecastLiterals}
}

// Driver returns a fixed-point driver over Passes.
func Driver(maxSweeps int) pass.Driver[*rhif.Object] {
	return pass.Driver[*rhif.Object]{Name: "rhif", Passes: Passes(), MaxSweeps: maxSweeps}
}
