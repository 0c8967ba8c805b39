package mir

// SimplifyModule runs SimplifyCFG over every function of m.
func SimplifyModule(m *Module) {
	if m == nil {
		return
	}
	for _, f := range m.Funcs {
		SimplifyCFG(f)
	}
}

// SimplifyCFG performs control flow graph simplification on a function.
// Transformations:
// 1. Remove trivial goto blocks (0 instructions + goto terminator)
// 2. Collapse goto chains
// 3. Remove unreachable blocks
// 4. Renumber blocks deterministically, preserving relative order
func SimplifyCFG(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	redirects := buildRedirectMap(f)
	if len(redirects) > 0 {
		for i := range f.Blocks {
			retarget(&f.Blocks[i].Term, redirects)
		}
		if next, ok := redirects[f.Entry]; ok {
			f.Entry = next
		}
	}
	compactBlocks(f, computeReachability(f))
}

// buildRedirectMap maps every trivial goto block to the final target of
// its goto chain. Cycles of empty blocks stop at the first repeat.
func buildRedirectMap(f *Func) map[BlockID]BlockID {
	redirects := make(map[BlockID]BlockID)
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if !isTrivialGotoBlock(f, bb.ID) {
			continue
		}
		target := bb.Term.Goto.Target
		visited := map[BlockID]bool{bb.ID: true}
		for !visited[target] && isTrivialGotoBlock(f, target) {
			visited[target] = true
			target = f.Blocks[target].Term.Goto.Target
		}
		redirects[bb.ID] = target
	}
	return redirects
}

func isTrivialGotoBlock(f *Func, id BlockID) bool {
	bb := f.Block(id)
	return bb != nil && len(bb.Instrs) == 0 && bb.Term.Kind == TermGoto
}

func retarget(term *Terminator, mapping map[BlockID]BlockID) {
	re := func(id BlockID) BlockID {
		if next, ok := mapping[id]; ok {
			return next
		}
		return id
	}
	switch term.Kind {
	case TermGoto:
		term.Goto.Target = re(term.Goto.Target)
	case TermIf:
		term.If.Then = re(term.If.Then)
		term.If.Else = re(term.If.Else)
	}
}

// computeReachability marks blocks reachable from the entry block.
func computeReachability(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))
	stack := []BlockID{f.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.Block(id) == nil || reachable[id] {
			continue
		}
		reachable[id] = true
		stack = append(stack, f.Blocks[id].Term.Successors()...)
	}
	return reachable
}

// compactBlocks removes unreachable blocks and renumbers the rest.
func compactBlocks(f *Func, reachable []bool) {
	oldToNew := make(map[BlockID]BlockID, len(f.Blocks))
	kept := make([]Block, 0, len(f.Blocks))
	for i, keep := range reachable {
		if keep {
			oldToNew[BlockID(i)] = BlockID(len(kept)) //nolint:gosec // bounded by block count
			kept = append(kept, f.Blocks[i])
		}
	}
	for i := range kept {
		kept[i].ID = BlockID(i) //nolint:gosec // bounded by block count
		retarget(&kept[i].Term, oldToNew)
	}
	if next, ok := oldToNew[f.Entry]; ok {
		f.Entry = next
	}
	f.Blocks = kept
}
