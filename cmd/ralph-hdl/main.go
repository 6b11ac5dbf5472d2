package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-hdl/pkg/cache"
	"github.com/raymyers/ralph-hdl/pkg/compiler"
	"github.com/raymyers/ralph-hdl/pkg/kernelyaml"
	"github.com/raymyers/ralph-hdl/pkg/kind"
	"github.com/raymyers/ralph-hdl/pkg/ntl"
	"github.com/raymyers/ralph-hdl/pkg/ntlvm"
	"github.com/raymyers/ralph-hdl/pkg/pass"
	"github.com/raymyers/ralph-hdl/pkg/rhif"
	"github.com/raymyers/ralph-hdl/pkg/typedbits"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dRHIF bool
	dRTL  bool
	dNTL  bool
	dCost bool
)

// Compile options
var (
	configPath string
	cachePath  string
	jobs       int
	kernels    []string
	simArgs    string
	verbosity  string
)

// ErrCompileFailed is returned when at least one kernel did not compile.
var ErrCompileFailed = errors.New("compilation failed")

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrCompileFailed) {
			fmt.Fprintf(os.Stderr, "ralph-hdl: %v\n", err)
		}
		return 1
	}
	return 0
}

// debugFlagNames lists the dump flags that also accept the single-dash style
var debugFlagNames = []string{"drhif", "drtl", "dntl", "dcost"}

// normalizeFlags converts single-dash dump flags like -drtl to --drtl
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-hdl [file]",
		Short: "ralph-hdl compiles hardware kernels down to gate netlists",
		Long: `ralph-hdl reads kernels described in YAML, optimizes and checks
them as RHIF, lowers them to RTL and then to a bit level netlist,
and reports the most expensive paths through the result.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}

			if verbosity != "" {
				tlog.SetVerbosity(verbosity)
			}

			return doCompile(cmd.Context(), args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&dRHIF, "drhif", "", false, "Dump optimized RHIF")
	rootCmd.Flags().BoolVarP(&dRTL, "drtl", "", false, "Dump optimized RTL")
	rootCmd.Flags().BoolVarP(&dNTL, "dntl", "", false, "Dump optimized NTL")
	rootCmd.Flags().BoolVarP(&dCost, "dcost", "", false, "Dump the critical path report")

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Read compiler settings from a YAML file")
	rootCmd.Flags().StringVar(&cachePath, "cache", "", "Reuse results from a SQLite artifact cache")
	rootCmd.Flags().IntVarP(&jobs, "jobs", "j", 1, "Compile up to N independent kernels at once")
	rootCmd.Flags().StringArrayVarP(&kernels, "kernel", "k", nil, "Only report the named kernel (repeatable)")
	rootCmd.Flags().StringVar(&simArgs, "sim", "", "Simulate the netlist on comma separated inputs")
	rootCmd.Flags().StringVarP(&verbosity, "verbose", "v", "", "Enable log topics (dump_rhif, dump_rtl, dump_ntl)")

	return rootCmd
}

// doCompile compiles every kernel of filename and reports the selected ones.
func doCompile(ctx context.Context, filename string, out, errOut io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg := compiler.DefaultConfig()
	if configPath != "" {
		if cfg, err = compiler.LoadConfig(configPath); err != nil {
			return err
		}
	}

	objs, err := kernelyaml.Load(filename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-hdl: %v\n", err)
		return ErrCompileFailed
	}

	selected, err := selectKernels(objs)
	if err != nil {
		return err
	}

	var sims []string
	if simArgs != "" {
		sims = strings.Split(simArgs, ",")
	}

	var store *cache.Cache
	if cachePath != "" {
		if store, err = cache.Open(cachePath); err != nil {
			return err
		}
		defer func() {
			if e := store.Close(); err == nil {
				err = e
			}
		}()
	}

	keys := compiler.InputKeys(objs, cfg)

	// Cache entries hold only the netlist text and the report.
	if store != nil && !dRHIF && !dRTL && sims == nil {
		entries, hit, err := lookup(ctx, store, keys, selected)
		if err != nil {
			return err
		}
		if hit {
			for _, e := range entries {
				if dNTL {
					fmt.Fprint(out, e.NTL)
				}
				writeReport(out, e.Report)
			}
			return nil
		}
	}

	outcomes, err := compiler.CompileAll(ctx, objs, cfg, jobs)
	if err != nil {
		return err
	}

	byName := make(map[string]compiler.Outcome, len(outcomes))
	for _, o := range outcomes {
		byName[o.Name] = o
	}

	failed := 0

	for _, name := range selected {
		o := byName[name]
		if o.Err != nil {
			fmt.Fprintf(errOut, "ralph-hdl: %s: %v\n", name, o.Err)
			failed++
			continue
		}

		res := o.Result
		rep := report(name, res)

		if store != nil {
			e := cache.Entry{Kernel: name, NTL: res.NTL.Dump(), Report: rep}
			if err := store.Put(ctx, keys[name], e); err != nil {
				return err
			}
		}

		if dRHIF {
			fmt.Fprint(out, res.RHIF.Dump())
		}
		if dRTL {
			fmt.Fprint(out, res.RTL.Dump())
		}
		if dNTL {
			fmt.Fprint(out, res.NTL.Dump())
		}
		writeReport(out, rep)

		if sims != nil {
			if err := simulate(out, res.NTL, sims); err != nil {
				fmt.Fprintf(errOut, "ralph-hdl: %s: simulate: %v\n", name, err)
				failed++
			}
		}
	}

	if failed != 0 {
		fmt.Fprintf(errOut, "ralph-hdl: %d of %d kernels failed\n", failed, len(selected))
		return ErrCompileFailed
	}

	return nil
}

// selectKernels returns the names of the kernels to report, in file order.
func selectKernels(objs []*rhif.Object) ([]string, error) {
	all := make([]string, len(objs))
	known := make(map[string]bool, len(objs))
	for i, obj := range objs {
		all[i] = obj.Name
		known[obj.Name] = true
	}

	if len(kernels) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(kernels))
	for _, k := range kernels {
		if !known[k] {
			return nil, errors.New("no kernel named %s", k)
		}
		want[k] = true
	}

	var r []string
	for _, name := range all {
		if want[name] {
			r = append(r, name)
		}
	}

	return r, nil
}

// lookup returns cached entries for every selected kernel, or hit == false
// if any of them is missing.
func lookup(ctx context.Context, store *cache.Cache, keys map[string]pass.Digest, selected []string) (entries []cache.Entry, hit bool, err error) {
	tr := tlog.SpanFromContext(ctx)

	for _, name := range selected {
		e, ok, err := store.Get(ctx, keys[name])
		if err != nil {
			return nil, false, err
		}
		if !ok {
			tr.V("cache").Printw("cache miss", "kernel", name, "key", keys[name].Short())
			return nil, false, nil
		}
		entries = append(entries, e)
	}

	tr.V("cache").Printw("cache hit", "kernels", len(entries))

	return entries, true, nil
}

// report is the summary line of a kernel followed by its critical paths.
func report(name string, res *compiler.Result) string {
	var b strings.Builder

	cost := 0
	if len(res.Paths) != 0 {
		cost = res.Paths[0].Cost
	}

	fmt.Fprintf(&b, "kernel %s: %d ops, %d inputs, %d outputs, critical path cost %d\n",
		name, len(res.NTL.Ops), len(res.NTL.Inputs), len(res.NTL.Outputs), cost)

	for _, p := range res.Paths {
		b.WriteString(p.String())
	}

	return b.String()
}

// writeReport prints the whole report with -dcost and its summary otherwise.
func writeReport(out io.Writer, rep string) {
	if !dCost {
		if i := strings.IndexByte(rep, '\n'); i >= 0 {
			rep = rep[:i+1]
		}
	}
	fmt.Fprint(out, rep)
}

// simulate runs the netlist on the given inputs. Values without a kind
// suffix take the width of their input: unsigned, or signed when negative.
func simulate(out io.Writer, obj *ntl.Object, vals []string) error {
	if len(vals) != len(obj.Inputs) {
		return errors.New("%s takes %d inputs, got %d", obj.Name, len(obj.Inputs), len(vals))
	}

	args := make([]typedbits.TypedBits, len(vals))

	for i, s := range vals {
		s = strings.TrimSpace(s)
		w := len(obj.Inputs[i].Wires)

		lit := s
		if !strings.Contains(s, "_") {
			if strings.HasPrefix(s, "-") {
				lit = fmt.Sprintf("%s_s%d", s, w)
			} else {
				lit = fmt.Sprintf("%s_b%d", s, w)
			}
		}

		v, err := kernelyaml.ParseLiteral(lit, nil)
		if err != nil {
			return errors.Wrap(err, "input %s", obj.Inputs[i].Name)
		}

		if args[i], err = v.Retyped(kind.Bits{Width: w}); err != nil {
			return errors.Wrap(err, "input %s", obj.Inputs[i].Name)
		}
	}

	got, err := ntlvm.Run(obj, args, nil)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s(%s) = %s\n", obj.Name, strings.Join(vals, ", "), got)

	return nil
}
