package kernel

// The kernel's critical section is a single non-nested interrupt mask.
// Each kernel operation takes it exactly once at its outer edge; helpers
// that need protection take it as a documented precondition instead of
// re-entering. The depth counter exists only to catch violations of that
// discipline, not to support nesting.

func (k *Kernel) enterCritical() {
	k.port.DisableInterrupts()
	k.guardDepth++
	if k.guardDepth != 1 {
		k.fault(FaultGuardImbalance, none, "nested critical section enter")
	}
}

func (k *Kernel) exitCritical() {
	if k.guardDepth != 1 {
		k.fault(FaultGuardImbalance, none, "critical section exit without enter")
		return
	}
	k.guardDepth--
	k.port.EnableInterrupts()
}
