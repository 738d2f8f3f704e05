package types

// Script is an ordered sequence of Instruction, immutable after compilation.
type Script struct {
	Name string
	Code []Instruction
}

// Len returns the number of instructions in the script.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Code)
}

// At returns the instruction at offset pc, or nil if pc is out of bounds.
func (s *Script) At(pc int) Instruction {
	if s == nil || pc < 0 || pc >= len(s.Code) {
		return nil
	}
	return s.Code[pc]
}
