package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michcald/cortexm"
)

var (
	exceptionCmd = &cobra.Command{
		Use:     "exception",
		Aliases: []string{"exc"},
		Short:   "Enable, disable or prioritize system exceptions",
	}

	exceptionEnableCmd = &cobra.Command{
		Use:   "enable memmanage|busfault|usagefault",
		Short: "Enable a fault exception",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withException(cmd, args[0], true)
		},
	}

	exceptionDisableCmd = &cobra.Command{
		Use:   "disable memmanage|busfault|usagefault",
		Short: "Disable a fault exception",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withException(cmd, args[0], false)
		},
	}

	exceptionPriorityCmd = &cobra.Command{
		Use:   "priority EXCEPTION PRIORITY",
		Short: "Set the priority of a system exception (name or 0-15)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := cortexm.ParseException(args[0])
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
			b.core.NVIC.SetPriorityException(e, prio)
			fmt.Fprintf(cmd.OutOrStdout(), "%s priority=%d\n", e, b.core.NVIC.PriorityException(e))
			return nil
		},
	}
)

func init() {
	exceptionCmd.AddCommand(exceptionEnableCmd, exceptionDisableCmd, exceptionPriorityCmd)
}

func withException(cmd *cobra.Command, name string, enable bool) error {
	e, err := cortexm.ParseException(name)
	if err != nil {
		return err
	}
	switch e {
	case cortexm.MemManage, cortexm.BusFault, cortexm.UsageFault:
	default:
		return fmt.Errorf("%s has no enable bit", e)
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	if enable {
		b.core.NVIC.EnableException(e)
	} else {
		b.core.NVIC.DisableException(e)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%v\n", e, b.core.NVIC.ExceptionEnabled(e))
	return nil
}
