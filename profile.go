//go:build !tinygo

package cortexm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Profile is a declarative interrupt configuration, usually kept as YAML next to
// the firmware:
//
//	irqs:
//	  - irq: 21
//	    priority: 2
//	    enabled: true
//	exceptions:
//	  - exception: busfault
//	    priority: 1
//	    enabled: true
//	  - exception: systick
//	    priority: 3
//
// Fields left out are not touched when the profile is applied.
type Profile struct {
	IRQs       []IRQSetting       `yaml:"irqs"`
	Exceptions []ExceptionSetting `yaml:"exceptions"`
}

type IRQSetting struct {
	IRQ      int   `yaml:"irq"`
	Enabled  *bool `yaml:"enabled,omitempty"`
	Priority *int  `yaml:"priority,omitempty"`
}

type ExceptionSetting struct {
	// Exception is a name (reset, nmi, hardfault, memmanage, busfault, usagefault,
	// svcall, debugmonitor, pendsv, systick) or a number from 0 to 15.
	Exception string `yaml:"exception"`
	Enabled   *bool  `yaml:"enabled,omitempty"`
	Priority  *int   `yaml:"priority,omitempty"`
}

var exceptionNames = map[string]Exception{
	"reset":        Reset,
	"nmi":          NMI,
	"hardfault":    HardFault,
	"memmanage":    MemManage,
	"busfault":     BusFault,
	"usagefault":   UsageFault,
	"svcall":       SVCall,
	"debugmonitor": DebugMonitor,
	"pendsv":       PendSV,
	"systick":      SysTickException,
}

// ParseException resolves an exception name (case-insensitive) or number.
func ParseException(s string) (Exception, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if e, ok := exceptionNames[s]; ok {
		return e, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > int(MaxException) {
		return 0, fmt.Errorf("%w: unknown exception %q", ErrPkg, s)
	}
	return Exception(n), nil
}

// LoadProfile reads and validates a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPkg, err)
	}
	defer f.Close()
	return ReadProfile(f)
}

// ReadProfile decodes and validates a YAML profile. Unknown keys are rejected.
func ReadProfile(r io.Reader) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrProfile, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseProfile is ReadProfile over a byte slice.
func ParseProfile(data []byte) (*Profile, error) {
	return ReadProfile(bytes.NewReader(data))
}

func checkPriority(p *int) error {
	if p != nil && (*p < int(PriorityHighest) || *p > int(PriorityLowest)) {
		return fmt.Errorf("priority %d out of range 0-7", *p)
	}
	return nil
}

// Validate reports the first out-of-range or duplicate entry.
func (p *Profile) Validate() error {
	seenIRQ := make(map[int]bool)
	for _, s := range p.IRQs {
		if s.IRQ < 0 || s.IRQ > int(MaxIRQ) {
			return fmt.Errorf("%w: irq %d out of range 0-%d", ErrProfile, s.IRQ, MaxIRQ)
		}
		if seenIRQ[s.IRQ] {
			return fmt.Errorf("%w: irq %d listed twice", ErrProfile, s.IRQ)
		}
		seenIRQ[s.IRQ] = true
		if err := checkPriority(s.Priority); err != nil {
			return fmt.Errorf("%w: irq %d: %w", ErrProfile, s.IRQ, err)
		}
	}

	seenExc := make(map[Exception]bool)
	for _, s := range p.Exceptions {
		e, err := ParseException(s.Exception)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProfile, err)
		}
		if seenExc[e] {
			return fmt.Errorf("%w: exception %s listed twice", ErrProfile, s.Exception)
		}
		seenExc[e] = true
		if s.Enabled != nil && !isFault(e) {
			return fmt.Errorf("%w: exception %s cannot be enabled or disabled", ErrProfile, s.Exception)
		}
		if err := checkPriority(s.Priority); err != nil {
			return fmt.Errorf("%w: exception %s: %w", ErrProfile, s.Exception, err)
		}
	}
	return nil
}

// Apply writes the profile to n. All priorities are set before any interrupt
// is enabled, in ascending number order, so no source fires at a stale priority.
// The profile must have passed Validate.
func (p *Profile) Apply(n *NVIC) {
	irqs := make(map[int]IRQSetting, len(p.IRQs))
	irqOrder := make([]int, 0, len(p.IRQs))
	for _, s := range p.IRQs {
		irqs[s.IRQ] = s
		irqOrder = append(irqOrder, s.IRQ)
	}
	slices.Sort(irqOrder)

	excs := make(map[int]ExceptionSetting, len(p.Exceptions))
	excOrder := make([]int, 0, len(p.Exceptions))
	for _, s := range p.Exceptions {
		e, err := ParseException(s.Exception)
		if err != nil {
			continue
		}
		excs[int(e)] = s
		excOrder = append(excOrder, int(e))
	}
	slices.Sort(excOrder)

	for _, e := range excOrder {
		if s := excs[e]; s.Priority != nil {
			n.SetPriorityException(Exception(e), Priority(*s.Priority))
		}
	}
	for _, irq := range irqOrder {
		if s := irqs[irq]; s.Priority != nil {
			n.SetPriorityIRQ(IRQ(irq), Priority(*s.Priority))
		}
	}

	for _, e := range excOrder {
		s := excs[e]
		if s.Enabled == nil {
			continue
		}
		if *s.Enabled {
			n.EnableException(Exception(e))
		} else {
			n.DisableException(Exception(e))
		}
	}
	for _, irq := range irqOrder {
		s := irqs[irq]
		if s.Enabled == nil {
			continue
		}
		if *s.Enabled {
			n.EnableIRQ(IRQ(irq))
		} else {
			n.DisableIRQ(IRQ(irq))
		}
	}
	globalLogger.Info("Interrupt profile applied: " + strconv.Itoa(len(irqOrder)) + " IRQs, " + strconv.Itoa(len(excOrder)) + " exceptions")
}
