package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/michcald/cortexm"
)

var (
	applyCmd = &cobra.Command{
		Use:   "apply PROFILE",
		Short: "Apply a YAML interrupt profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cortexm.LoadProfile(args[0])
			if err != nil {
				return err
			}
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			p.Apply(b.core.NVIC)
			dumpCore(cmd.OutOrStdout(), b)
			return nil
		},
	}

	tickOpts = struct {
		count   int
		timeout time.Duration
	}{}

	tickCmd = &cobra.Command{
		Use:   "tick MS",
		Short: "Run the SysTick in periodic interrupt mode and report each tick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := parseMillis(args[0])
			if err != nil {
				return err
			}
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			st := b.core.SysTick
			if _, ok := st.ReloadFor(ms); !ok {
				return fmt.Errorf("period %dms exceeds the %dms maximum at %dHz", ms, st.MaxPeriodMs(), st.CoreClockHz())
			}

			ticks := make(chan struct{}, 1)
			st.SetCallBack(func() {
				select {
				case ticks <- struct{}{}:
				default:
				}
			})
			st.Init(ms)
			defer st.DeInit()

			start := time.Now()
			timeout := time.After(tickOpts.timeout)
			for i := 1; i <= tickOpts.count; i++ {
				select {
				case <-ticks:
					fmt.Fprintf(cmd.OutOrStdout(), "tick %d at %s\n", i, time.Since(start).Round(time.Millisecond))
				case <-timeout:
					return fmt.Errorf("timed out after %d of %d ticks", i-1, tickOpts.count)
				}
			}
			return nil
		},
	}

	delayCmd = &cobra.Command{
		Use:   "delay MS",
		Short: "Busy-wait on the SysTick COUNTFLAG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()

			start := time.Now()
			b.core.SysTick.Delay(uint32(ms))
			fmt.Fprintf(cmd.OutOrStdout(), "waited %dms (%s wall clock)\n", ms, time.Since(start).Round(time.Microsecond))
			if b.sim != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "simulated %d cycles\n", b.sim.Cycles())
			}
			return nil
		},
	}
)

func init() {
	tickCmd.Flags().IntVarP(&tickOpts.count, "count", "n", 5, "number of ticks to wait for")
	tickCmd.Flags().DurationVar(&tickOpts.timeout, "timeout", 10*time.Second, "give up after this long")
}

func parseMillis(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid period %q: expected 1-65535", s)
	}
	return uint16(n), nil
}
