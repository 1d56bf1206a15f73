package editops

// An Op is one step of an edit script.
type Op struct {
	Action Action

	// Token is the emitted token, or NoToken for Delete.
	Token int
}

// Align computes a minimum-cost edit script which turns
// prior into target.
//
// Keep is free and every other action costs one.
// When several scripts are optimal, earlier steps prefer
// Keep, then Replace, then Delete, then Insert.
func Align(prior, target []int) []Op {
	n, m := len(prior), len(target)

	// cost[i][j] is the cost of turning prior[i:] into
	// target[j:].
	cost := make([][]int, n+1)
	for i := range cost {
		cost[i] = make([]int, m+1)
	}
	for i := n; i >= 0; i-- {
		for j := m; j >= 0; j-- {
			switch {
			case i == n:
				cost[i][j] = m - j
			case j == m:
				cost[i][j] = n - i
			default:
				best := cost[i+1][j+1]
				if prior[i] != target[j] {
					best++
				}
				best = minInt(best, cost[i+1][j]+1)
				best = minInt(best, cost[i][j+1]+1)
				cost[i][j] = best
			}
		}
	}

	var res []Op
	i, j := 0, 0
	for i < n || j < m {
		c := cost[i][j]
		switch {
		case i < n && j < m && prior[i] == target[j] && cost[i+1][j+1] == c:
			res = append(res, Op{Action: Keep, Token: target[j]})
			i++
			j++
		case i < n && j < m && cost[i+1][j+1]+1 == c:
			res = append(res, Op{Action: Replace, Token: target[j]})
			i++
			j++
		case i < n && cost[i+1][j]+1 == c:
			res = append(res, Op{Action: Delete, Token: NoToken})
			i++
		default:
			res = append(res, Op{Action: Insert, Token: target[j]})
			j++
		}
	}
	return res
}

// Apply replays an edit script on prior and returns the
// emitted tokens.
//
// It panics if the script refers to prior tokens which do
// not exist.
func Apply(prior []int, ops []Op) []int {
	var res []int
	ptr := 0
	for _, op := range ops {
		if op.Action.Consumes() && ptr >= len(prior) {
			panic("edit script runs past prior sequence")
		}
		switch op.Action {
		case Keep:
			res = append(res, prior[ptr])
		case Insert, Replace:
			res = append(res, op.Token)
		}
		if op.Action.Consumes() {
			ptr++
		}
	}
	return res
}

// Distance returns the cost of an edit script.
func Distance(ops []Op) int {
	var res int
	for _, op := range ops {
		if op.Action != Keep {
			res++
		}
	}
	return res
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
