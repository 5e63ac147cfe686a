package builder

import (
	"github.com/frederic-klein/yamb/internal/bundle"
)

// split distributes the modules of raw and preload sections over at most
// parts consecutive groups of similar byte size. Require and bundleInfo
// sections go to the last part so they run after all modules are known.
func split(sections []renderedSection, parts int) [][]renderedSection {
	type sized struct {
		module string
		size   int
	}
	var modules []sized
	index := make(map[string]int)
	total := 0
	for _, s := range sections {
		if !splittable(s.mode) {
			continue
		}
		for _, c := range s.chunks {
			i, ok := index[c.module]
			if !ok {
				i = len(modules)
				index[c.module] = i
				modules = append(modules, sized{module: c.module})
			}
			modules[i].size += len(c.text)
			total += len(c.text)
		}
	}
	parts = max(min(parts, len(modules)), 1)
	if parts == 1 {
		return [][]renderedSection{sections}
	}

	target := total / parts
	assigned := make(map[string]int, len(modules))
	part, acc := 0, 0
	for i, m := range modules {
		assigned[m.module] = part
		acc += m.size
		left := len(modules) - i - 1
		if part < parts-1 && (acc >= target*(part+1) || left == parts-1-part) {
			part++
		}
	}

	out := make([][]renderedSection, parts)
	for _, s := range sections {
		if !splittable(s.mode) {
			out[parts-1] = append(out[parts-1], s)
			continue
		}
		byPart := make([][]chunk, parts)
		for _, c := range s.chunks {
			p := assigned[c.module]
			byPart[p] = append(byPart[p], c)
		}
		for p, chunks := range byPart {
			if len(chunks) > 0 {
				out[p] = append(out[p], renderedSection{mode: s.mode, chunks: chunks})
			}
		}
	}
	return out
}

func splittable(m bundle.Mode) bool {
	return m == bundle.ModeRaw || m == bundle.ModePreload
}
