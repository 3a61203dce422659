//go:build !tinygo

package cortexm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testProfile = `
irqs:
  - irq: 21
    priority: 2
    enabled: true
  - irq: 5
    priority: 7
  - irq: 40
    enabled: false
exceptions:
  - exception: BusFault
    priority: 1
    enabled: true
  - exception: systick
    priority: 3
  - exception: "14"
    priority: 6
`

func TestParseProfileAndApply(t *testing.T) {
	core, sim := newTestCore(t, false)
	n := core.NVIC

	p, err := ParseProfile([]byte(testProfile))
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if len(p.IRQs) != 3 || len(p.Exceptions) != 3 {
		t.Fatalf("Expected 3 IRQs and 3 exceptions, got %d and %d", len(p.IRQs), len(p.Exceptions))
	}

	n.EnableIRQ(40)
	p.Apply(n)

	if !n.IRQEnabled(21) || n.PriorityIRQ(21) != 2 {
		t.Errorf("IRQ 21 expected enabled at priority 2, got %v/%d", n.IRQEnabled(21), n.PriorityIRQ(21))
	}
	if n.IRQEnabled(5) || n.PriorityIRQ(5) != 7 {
		t.Errorf("IRQ 5 expected disabled at priority 7, got %v/%d", n.IRQEnabled(5), n.PriorityIRQ(5))
	}
	if n.IRQEnabled(40) {
		t.Errorf("IRQ 40 expected disabled")
	}
	if !n.ExceptionEnabled(BusFault) || n.PriorityException(BusFault) != 1 {
		t.Errorf("BusFault expected enabled at priority 1")
	}
	if n.PriorityException(SysTickException) != 3 {
		t.Errorf("SysTick expected priority 3, got %d", n.PriorityException(SysTickException))
	}
	if n.PriorityException(PendSV) != 6 {
		t.Errorf("PendSV expected priority 6, got %d", n.PriorityException(PendSV))
	}
	// SHPR3: PendSV slot 2 = 6<<21, SysTick slot 3 = 3<<29
	if got := sim.Peek(0xE000ED20); got != 6<<21|3<<29 {
		t.Errorf("Expected SHPR3 0x%08X, got 0x%08X", uint32(6<<21|3<<29), got)
	}
}

func TestProfileValidation(t *testing.T) {
	cases := map[string]string{
		"irq out of range":      "irqs:\n  - irq: 137\n",
		"negative irq":          "irqs:\n  - irq: -1\n",
		"priority out of range": "irqs:\n  - irq: 3\n    priority: 8\n",
		"duplicate irq":         "irqs:\n  - irq: 3\n  - irq: 3\n",
		"unknown exception":     "exceptions:\n  - exception: lockup\n",
		"enable non-fault":      "exceptions:\n  - exception: pendsv\n    enabled: true\n",
		"duplicate exception":   "exceptions:\n  - exception: busfault\n  - exception: \"5\"\n",
		"unknown key":           "irqs:\n  - irq: 3\n    level: 2\n",
	}
	for name, doc := range cases {
		if _, err := ParseProfile([]byte(doc)); !errors.Is(err, ErrProfile) {
			t.Errorf("%s: expected ErrProfile, got %v", name, err)
		}
	}

	if p, err := ParseProfile(nil); err != nil || len(p.IRQs) != 0 {
		t.Errorf("Empty profile expected to parse, got %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte(testProfile), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if p.IRQs[0].IRQ != 21 {
		t.Errorf("Expected first IRQ 21, got %d", p.IRQs[0].IRQ)
	}

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrPkg) {
		t.Errorf("Missing file expected ErrPkg, got %v", err)
	}
}

func TestParseException(t *testing.T) {
	for in, want := range map[string]Exception{
		"MemManage":   MemManage,
		" usagefault": UsageFault,
		"svcall":      SVCall,
		"15":          SysTickException,
		"0":           0,
		"HardFault":   HardFault,
		"nmi":         NMI,
	} {
		got, err := ParseException(in)
		if err != nil || got != want {
			t.Errorf("ParseException(%q) expected %d, got %d (%v)", in, want, got, err)
		}
	}
	for _, in := range []string{"16", "-1", "lockup", ""} {
		if _, err := ParseException(in); err == nil {
			t.Errorf("ParseException(%q) expected an error", in)
		}
	}
}
