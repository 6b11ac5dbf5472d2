package ntlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/pass"
)

// Passes returns the NTL sweep in its fixed order.
func Passes() []pass.Pass[*ntl.Object] {
	return []pass.Pass[*ntl.Object]{
		pass.Func[*ntl.Object]{Name: "constant fold", F: ConstantFold},
		pass.Func[*ntl.Object]{Name: "remove extra registers", F: RemoveExtraRegisters},
		pass.Func[*ntl.Object]{Name: "dead code elimination", F: DeadCodeElimination},
	}
}

// Driver returns a fixed-point driver over Passes.
func Driver(maxSweeps int) pass.Driver[*ntl.Object] {
	return pass.Driver[*ntl.Object]{Name: "ntl", Passes: Passes(), MaxSweeps: maxSweeps}
}
