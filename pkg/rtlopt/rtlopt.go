package rtlopt

import (
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/rtl"
)

// Passes returns the RTL sweep in its fixed order.
func Passes() []pass.Pass[*rtl.Object] {
	return []pass.Pass[*rtl.Object]{
		pass.Func[*rtl.Object]{Name: "lower shift by constant", F: LowerShiftByConstant},
		pass.Func[*rtl.Object]{Name: "lower index all", F: LowerIndexAll},
		pass.Func[*rtl.Object]{Name: "constant propagation", F: ConstantPropagation},
		pass.Func[*rtl.Object]{Name: "remove extra registers", F: RemoveExtraRegisters},
		pass.Func[*rtl.Object]{Name: "dead code elimination", F: DeadCodeElimination},
	}
}

// Driver returns a fixed-point driver over Passes.
func Driver(maxSweeps int) pass.Driver[*rtl.Object] {
	return pass.Driver[*rtl.Object]{Name: "rtl", Passes: Passes(), MaxSweeps: maxSweeps}
}
