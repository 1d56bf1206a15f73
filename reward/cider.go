package reward

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	ciderMaxN  = 4
	ciderSigma = 6.0
	ciderScale = 10.0
)

// CIDEr implements the CIDEr-D consensus metric.
//
// Document frequencies come from a reference corpus: each
// image's set of references counts as one document.
type CIDEr struct {
	docFreq []map[string]float64
	logDocs float64
}

// NewCIDEr computes document frequencies from the
// references of every image in a corpus.
func NewCIDEr(corpus [][][]int) *CIDEr {
	res := &CIDEr{
		docFreq: make([]map[string]float64, ciderMaxN),
		logDocs: math.Log(float64(len(corpus))),
	}
	for n := range res.docFreq {
		res.docFreq[n] = map[string]float64{}
	}
	for _, refs := range corpus {
		seen := map[string]bool{}
		for _, ref := range refs {
			for n := 1; n <= ciderMaxN; n++ {
				for g := range ngramCounts(ref, n) {
					key := strconv.Itoa(n) + ":" + g
					if !seen[key] {
						seen[key] = true
						res.docFreq[n-1][g]++
					}
				}
			}
		}
	}
	return res
}

// Score computes the CIDEr-D score of a caption.
func (c *CIDEr) Score(candidate []int, references [][]int) (float64, error) {
	if len(references) == 0 {
		return 0, errors.New("cider: no references")
	}
	var total float64
	for n := 1; n <= ciderMaxN; n++ {
		hyp, hypNorm := c.vector(candidate, n)
		var sum float64
		for _, ref := range references {
			refVec, refNorm := c.vector(ref, n)
			var dot float64
			for g, x := range hyp {
				if y, ok := refVec[g]; ok {
					dot += math.Min(x, y) * y
				}
			}
			if hypNorm != 0 && refNorm != 0 {
				dot /= hypNorm * refNorm
			}
			delta := float64(len(candidate) - len(ref))
			sum += dot * math.Exp(-delta*delta/(2*ciderSigma*ciderSigma))
		}
		total += sum / float64(len(references))
	}
	return ciderScale * total / ciderMaxN, nil
}

func (c *CIDEr) vector(caption []int, n int) (map[string]float64, float64) {
	res := map[string]float64{}
	var norm float64
	for g, count := range ngramCounts(caption, n) {
		idf := c.logDocs - math.Log(math.Max(1, c.docFreq[n-1][g]))
		x := float64(count) * idf
		res[g] = x
		norm += x * x
	}
	return res, math.Sqrt(norm)
}

func ngramCounts(caption []int, n int) map[string]int {
	res := map[string]int{}
	for i := 0; i+n <= len(caption); i++ {
		parts := make([]string, n)
		for j, t := range caption[i : i+n] {
			parts[j] = strconv.Itoa(t)
		}
		res[strings.Join(parts, " ")]++
	}
	return res
}
