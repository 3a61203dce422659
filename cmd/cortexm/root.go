package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/michcald/cortexm"
)

var (
	rootOpts = struct {
		mem            bool
		clock          string
		legacyPriority bool
		poll           time.Duration
		verbose        bool
	}{}

	rootCmd = &cobra.Command{
		Use:   "cortexm",
		Short: "Configure the NVIC and SysTick of a Cortex-M core",
		Long: "cortexm drives the NVIC and SysTick registers of a Cortex-M core, either through " +
			"/dev/mem (--mem) or against the built-in register simulator.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !rootOpts.verbose {
				cortexm.SetLogger(nil)
			}
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&rootOpts.mem, "mem", false, "access the registers through /dev/mem instead of the simulator")
	flags.StringVar(&rootOpts.clock, "clock", "16MHz", "SysTick clock source frequency")
	flags.BoolVar(&rootOpts.legacyPriority, "legacy-priority", false, "address IRQ priorities from 0xE000E100")
	flags.DurationVar(&rootOpts.poll, "poll", cortexm.DefaultPollInterval, "COUNTFLAG sampling period of the software tick dispatcher")
	flags.BoolVarP(&rootOpts.verbose, "verbose", "v", false, "log driver activity")

	rootCmd.AddCommand(irqCmd, exceptionCmd, applyCmd, tickCmd, delayCmd, dumpCmd)
}

// backend is an opened core plus the simulator behind it, if any.
type backend struct {
	core *cortexm.Core
	sim  *cortexm.Sim
}

func openBackend() (*backend, error) {
	var clock physic.Frequency
	if err := clock.Set(rootOpts.clock); err != nil {
		return nil, fmt.Errorf("invalid --clock %q: %w", rootOpts.clock, err)
	}

	if rootOpts.mem {
		core, err := cortexm.Open(cortexm.Config{
			CoreClock:          clock,
			LegacyPriorityBase: rootOpts.legacyPriority,
			PollInterval:       rootOpts.poll,
		})
		if err != nil {
			return nil, err
		}
		return &backend{core: core}, nil
	}

	sim := cortexm.NewSim()
	core, err := cortexm.NewWithHardware(cortexm.HardwareConfig{
		Bus:                sim,
		CoreClockHz:        uint32(clock / physic.Hertz),
		LegacyPriorityBase: rootOpts.legacyPriority,
	})
	if err != nil {
		return nil, err
	}
	// Let one poll interval of core cycles elapse per CTRL read so the
	// simulated counter keeps pace with the dispatcher.
	cycles := uint64(clock/physic.Hertz) * uint64(rootOpts.poll) / uint64(time.Second)
	if cycles == 0 {
		cycles = 1
	}
	sim.SetCyclesPerPoll(cycles)
	core.Watch(rootOpts.poll)
	return &backend{core: core, sim: sim}, nil
}

func (b *backend) Close() error {
	return b.core.Close()
}

// dumpCore prints SysTick state and every IRQ that is enabled or has a non-zero priority.
func dumpCore(w io.Writer, b *backend) {
	fmt.Fprintln(w, b.core)
	if b.sim != nil {
		// Peek so that reading does not clear COUNTFLAG
		fmt.Fprintf(w, "SYST_CSR=0x%08X SYST_RVR=0x%08X SYST_CVR=0x%08X\n",
			b.sim.Peek(cortexm.RegSysTickCtrl),
			b.sim.Peek(cortexm.RegSysTickReload),
			b.sim.Peek(cortexm.RegSysTickCurrent))
	}

	n := b.core.NVIC
	for irq := 0; irq <= int(cortexm.MaxIRQ); irq++ {
		enabled, prio := n.IRQEnabled(cortexm.IRQ(irq)), n.PriorityIRQ(cortexm.IRQ(irq))
		if enabled || prio != 0 {
			fmt.Fprintf(w, "IRQ %3d  enabled=%-5v priority=%d\n", irq, enabled, prio)
		}
	}
	for e := cortexm.Exception(0); e <= cortexm.MaxException; e++ {
		prio := n.PriorityException(e)
		if prio != 0 || n.ExceptionEnabled(e) {
			fmt.Fprintf(w, "EXC %3d  %-12s enabled=%-5v priority=%d\n", e, e, n.ExceptionEnabled(e), prio)
		}
	}
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print SysTick state and configured interrupts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()
		dumpCore(cmd.OutOrStdout(), b)
		return nil
	},
}
