package opreg

import "fmt"

// Pattern is an operator's fusion pattern.
type Pattern int

const (
	PatternElemwise           Pattern = 0
	PatternBroadcast          Pattern = 1
	PatternInjective          Pattern = 2
	PatternCommReduce         Pattern = 3
	PatternOutElemwiseFusable Pattern = 4
	PatternTuple              Pattern = 7
	PatternOpaque             Pattern = 8
)

var patternNames = map[Pattern]string{
	PatternElemwise:           "elemwise",
	PatternBroadcast:          "broadcast",
	PatternInjective:          "injective",
	PatternCommReduce:         "comm_reduce",
	PatternOutElemwiseFusable: "out_elemwise_fusable",
	PatternTuple:              "tuple",
	PatternOpaque:             "opaque",
}

func (p Pattern) String() string {
	if s, ok := patternNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// ParsePattern returns the pattern named s.
func ParsePattern(s string) (Pattern, error) {
	for p, name := range patternNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// Fusable reports whether elementwise consumers can be fused into the op.
func (p Pattern) Fusable() bool {
	return p <= PatternOutElemwiseFusable
}
