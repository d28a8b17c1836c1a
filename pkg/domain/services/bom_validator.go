package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
)

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.PartNumber
	DuplicateLines []*entities.BOMLine
	UnknownParts   []entities.PartNumber
	Errors         []string
}

// ValidateBOM checks a set of BOM lines for cycles, duplicate lines and
// references to parts that have no planning record. known may be nil to skip the last check.
func ValidateBOM(lines []*entities.BOMLine, known map[entities.PartNumber]bool) *ValidationResult {
	result := &ValidationResult{}

	graph := NewBOMGraph(lines)
	result.CyclePaths = detectCycles(graph)
	result.HasCycles = len(result.CyclePaths) > 0
	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}

	result.DuplicateLines = detectDuplicateLines(lines)
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	if known != nil {
		for _, pn := range graph.Parts() {
			if !known[pn] {
				result.UnknownParts = append(result.UnknownParts, pn)
			}
		}
		if len(result.UnknownParts) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("BOM references unknown parts: %v", result.UnknownParts))
		}
	}

	return result
}

// detectCycles uses DFS with a recursion stack to extract every back edge as a cycle path
func detectCycles(g *BOMGraph) [][]entities.PartNumber {
	visited := make(map[entities.PartNumber]bool)
	onStack := make(map[entities.PartNumber]bool)
	var cycles [][]entities.PartNumber

	var visit func(current entities.PartNumber, path []entities.PartNumber)
	visit = func(current entities.PartNumber, path []entities.PartNumber) {
		visited[current] = true
		onStack[current] = true
		path = append(path, current)

		for _, child := range g.ChildParts(current) {
			if !visited[child] {
				visit(child, path)
				continue
			}
			if !onStack[child] {
				continue
			}
			for i, part := range path {
				if part == child {
					cycle := append([]entities.PartNumber{}, path[i:]...)
					cycles = append(cycles, append(cycle, child))
					break
				}
			}
		}

		onStack[current] = false
	}

	for _, pn := range g.Parts() {
		if !visited[pn] {
			visit(pn, nil)
		}
	}
	return cycles
}

// detectDuplicateLines finds lines sharing parent, child and find number
func detectDuplicateLines(lines []*entities.BOMLine) []*entities.BOMLine {
	seen := make(map[string]bool)
	var duplicates []*entities.BOMLine

	for _, line := range lines {
		key := fmt.Sprintf("%s|%s|%d", line.ParentPN, line.ChildPN, line.FindNumber)
		if seen[key] {
			duplicates = append(duplicates, line)
			continue
		}
		seen[key] = true
	}
	return duplicates
}

// BOMGraph is the parent/child adjacency of a product structure
type BOMGraph struct {
	children map[entities.PartNumber][]*entities.BOMLine
	parents  map[entities.PartNumber][]entities.PartNumber
	parts    map[entities.PartNumber]bool
}

// NewBOMGraph indexes BOM lines by parent and by child
func NewBOMGraph(lines []*entities.BOMLine) *BOMGraph {
	g := &BOMGraph{
		children: make(map[entities.PartNumber][]*entities.BOMLine),
		parents:  make(map[entities.PartNumber][]entities.PartNumber),
		parts:    make(map[entities.PartNumber]bool),
	}
	for _, line := range lines {
		g.AddPart(line.ParentPN)
		g.AddPart(line.ChildPN)
		g.children[line.ParentPN] = append(g.children[line.ParentPN], line)
		g.parents[line.ChildPN] = appendUnique(g.parents[line.ChildPN], line.ParentPN)
	}
	for pn := range g.children {
		sort.SliceStable(g.children[pn], func(i, j int) bool {
			return g.children[pn][i].FindNumber < g.children[pn][j].FindNumber
		})
	}
	return g
}

// AddPart registers a part that may have no BOM lines at all
func (g *BOMGraph) AddPart(pn entities.PartNumber) {
	g.parts[pn] = true
}

// Parts returns every part in the graph, sorted
func (g *BOMGraph) Parts() []entities.PartNumber {
	out := make([]entities.PartNumber, 0, len(g.parts))
	for pn := range g.parts {
		out = append(out, pn)
	}
	sortParts(out)
	return out
}

// Children returns the BOM lines under a parent ordered by find number
func (g *BOMGraph) Children(parent entities.PartNumber) []*entities.BOMLine {
	return g.children[parent]
}

// ChildParts returns the distinct child part numbers of a parent
func (g *BOMGraph) ChildParts(parent entities.PartNumber) []entities.PartNumber {
	var out []entities.PartNumber
	for _, line := range g.children[parent] {
		out = appendUnique(out, line.ChildPN)
	}
	return out
}

// Parents returns the distinct parents that consume a part
func (g *BOMGraph) Parents(child entities.PartNumber) []entities.PartNumber {
	return g.parents[child]
}

// LowLevelCodes assigns every part the deepest level at which it appears (top level = 0)
// using Kahn's algorithm from the roots down. Parts left unprocessed sit on a cycle or
// below one; they are returned sorted in blocked.
func (g *BOMGraph) LowLevelCodes() (levels map[entities.PartNumber]int, blocked []entities.PartNumber) {
	inDegree := make(map[entities.PartNumber]int, len(g.parts))
	levels = make(map[entities.PartNumber]int, len(g.parts))
	var queue []entities.PartNumber

	for _, pn := range g.Parts() {
		inDegree[pn] = len(g.parents[pn])
		if inDegree[pn] == 0 {
			queue = append(queue, pn)
			levels[pn] = 0
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range g.ChildParts(current) {
			if levels[current]+1 > levels[child] {
				levels[child] = levels[current] + 1
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for _, pn := range g.Parts() {
		if inDegree[pn] > 0 {
			blocked = append(blocked, pn)
			delete(levels, pn)
		}
	}
	return levels, blocked
}

// Descendants returns the given parts plus every part below them
func (g *BOMGraph) Descendants(roots []entities.PartNumber) map[entities.PartNumber]bool {
	out := make(map[entities.PartNumber]bool)
	stack := append([]entities.PartNumber{}, roots...)
	for len(stack) > 0 {
		pn := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[pn] {
			continue
		}
		out[pn] = true
		stack = append(stack, g.ChildParts(pn)...)
	}
	return out
}

// GroupByLevel turns a low-level code map into ordered batches, each sorted by part number
func GroupByLevel(levels map[entities.PartNumber]int) [][]entities.PartNumber {
	maxLevel := -1
	for _, lvl := range levels {
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}
	batches := make([][]entities.PartNumber, maxLevel+1)
	for pn, lvl := range levels {
		batches[lvl] = append(batches[lvl], pn)
	}
	for _, batch := range batches {
		sortParts(batch)
	}
	return batches
}

func appendUnique(list []entities.PartNumber, pn entities.PartNumber) []entities.PartNumber {
	for _, existing := range list {
		if existing == pn {
			return list
		}
	}
	return append(list, pn)
}

func sortParts(parts []entities.PartNumber) {
	sort.Slice(parts, func(i, j int) bool { return parts[i] < parts[j] })
}
