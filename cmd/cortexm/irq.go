package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/michcald/cortexm"
)

func parseIRQ(s string) (cortexm.IRQ, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > int(cortexm.MaxIRQ) {
		return 0, fmt.Errorf("invalid IRQ %q: expected 0-%d", s, cortexm.MaxIRQ)
	}
	return cortexm.IRQ(n), nil
}

func parsePriority(s string) (cortexm.Priority, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < int(cortexm.PriorityHighest) || n > int(cortexm.PriorityLowest) {
		return 0, fmt.Errorf("invalid priority %q: expected 0-7", s)
	}
	return cortexm.Priority(n), nil
}

var (
	irqCmd = &cobra.Command{
		Use:   "irq",
		Short: "Enable, disable or prioritize peripheral interrupts",
	}

	irqEnableCmd = &cobra.Command{
		Use:   "enable IRQ...",
		Short: "Enable peripheral interrupts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachIRQ(cmd, args, (*cortexm.NVIC).EnableIRQ)
		},
	}

	irqDisableCmd = &cobra.Command{
		Use:   "disable IRQ...",
		Short: "Disable peripheral interrupts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachIRQ(cmd, args, (*cortexm.NVIC).DisableIRQ)
		},
	}

	irqPriorityCmd = &cobra.Command{
		Use:   "priority IRQ PRIORITY",
		Short: "Set the priority (0 highest, 7 lowest) of a peripheral interrupt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			irq, err := parseIRQ(args[0])
			if err != nil {
				return err
			}
			prio, err := parsePriority(args[1])
			if err != nil {
				return err
			}
			b, err := openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			b.core.NVIC.SetPriorityIRQ(irq, prio)
			fmt.Fprintf(cmd.OutOrStdout(), "IRQ %d priority=%d\n", irq, b.core.NVIC.PriorityIRQ(irq))
			return nil
		},
	}
)

func init() {
	irqCmd.AddCommand(irqEnableCmd, irqDisableCmd, irqPriorityCmd)
}

func forEachIRQ(cmd *cobra.Command, args []string, op func(*cortexm.NVIC, cortexm.IRQ)) error {
	irqs := make([]cortexm.IRQ, 0, len(args))
	for _, a := range args {
		irq, err := parseIRQ(a)
		if err != nil {
			return err
		}
		irqs = append(irqs, irq)
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	for _, irq := range irqs {
		op(b.core.NVIC, irq)
		fmt.Fprintf(cmd.OutOrStdout(), "IRQ %d enabled=%v\n", irq, b.core.NVIC.IRQEnabled(irq))
	}
	return nil
}
