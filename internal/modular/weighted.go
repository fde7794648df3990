package modular

import "sync"

// rowPool recycles the two-row error-record buffers the weighted
// predictor needs per channel decode, the same "get a buffer at least
// this big, grow if needed" idiom the teacher's dwt package uses for its
// lifting-step scratch space.
var rowPool = sync.Pool{
	New: func() interface{} {
		buf := make([]errRecord, 4096)
		return &buf
	},
}

func getRow(n int) []errRecord {
	bp := rowPool.Get().(*[]errRecord)
	buf := *bp
	if cap(buf) < n {
		buf = make([]errRecord, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = errRecord{}
	}
	return buf
}

func putRow(buf []errRecord) {
	bp := &buf
	rowPool.Put(bp)
}

// errRecord is one column's weighted-predictor state: the absolute
// error of each of the four prediction candidates, plus the aggregate
// signed error actually committed at that pixel (spec.md §4.7's
// "five-slot error record").
type errRecord struct {
	absErr    [4]int32
	signedErr int32
	valid     bool
}

// WeightedState holds the rolling two-row error history the weighted
// predictor (predictor 6, property 15) needs across a channel decode.
type WeightedState struct {
	width   int
	weights [4]int32
	shift   uint
	prevRow []errRecord
	curRow  []errRecord
}

// NewWeightedState allocates predictor state for a channel of the given
// width.
func NewWeightedState(width int) *WeightedState {
	return &WeightedState{
		width:   width,
		weights: [4]int32{5, 5, 5, 5},
		shift:   4,
		prevRow: getRow(width),
		curRow:  getRow(width),
	}
}

// Release returns the row buffers to the pool once a channel's decode
// has finished.
func (s *WeightedState) Release() {
	putRow(s.prevRow)
	putRow(s.curRow)
}

// StartRow rotates the two rows ahead of decoding row y: the row just
// finished becomes "previous," and a fresh row is zeroed for the one
// about to be decoded.
func (s *WeightedState) StartRow() {
	s.prevRow, s.curRow = s.curRow, s.prevRow
	for i := range s.curRow {
		s.curRow[i] = errRecord{}
	}
}

func (s *WeightedState) recordAt(x int, row []errRecord) errRecord {
	if x < 0 || x >= len(row) {
		return errRecord{}
	}
	return row[x]
}

// Predict computes the weighted predictor's output for the pixel at
// column x given its ordinary neighbors, and the property-15 value: the
// signed committed error of whichever of {w,n,nw,ne} has the largest
// magnitude among those already decoded.
func (s *WeightedState) Predict(x int, nb neighbors) (pred int32, prop15 int32) {
	rec := s.recordAt(x, s.prevRow) // the north pixel's candidate errors feed confidence.

	candidates := [4]int32{nb.w, nb.n, gradient(nb.w, nb.n, nb.nw), nb.ne}

	var num, den int64
	for i := 0; i < 4; i++ {
		e := int64(rec.absErr[i])
		conf := int64(4) + ((int64(s.weights[i]) * (int64(1) << 24) / (e + 1)) >> s.shift)
		if conf < 1 {
			conf = 1
		}
		num += conf * int64(candidates[i])
		den += conf
	}
	if den == 0 {
		den = 1
	}
	pred = int32(num / den)

	wErr := s.recordAt(x-1, s.curRow)
	nErr := s.recordAt(x, s.prevRow)
	nwErr := s.recordAt(x-1, s.prevRow)
	neErr := s.recordAt(x+1, s.prevRow)

	var lo, hi int32 = nb.w, nb.n
	if lo > hi {
		lo, hi = hi, lo
	}
	signs := [4]int32{wErr.signedErr, nErr.signedErr, nwErr.signedErr, neErr.signedErr}
	valid := [4]bool{wErr.valid, nErr.valid, nwErr.valid, neErr.valid}
	allAgree, sawAny := true, false
	var sign int32
	prop15 = 0
	var maxAbs int32 = -1
	for i, v := range signs {
		if !valid[i] {
			continue
		}
		if abs32(v) > maxAbs {
			maxAbs = abs32(v)
			prop15 = v
		}
		s := int32(0)
		switch {
		case v > 0:
			s = 1
		case v < 0:
			s = -1
		}
		if !sawAny {
			sign = s
			sawAny = true
		} else if s != sign {
			allAgree = false
		}
	}
	if sawAny && allAgree && sign != 0 {
		if pred < lo {
			pred = lo
		}
		if pred > hi {
			pred = hi
		}
	}

	return pred, prop15
}

// Update records the pixel just decoded: its per-candidate absolute
// errors and its aggregate signed error, for future columns' confidence
// and property-15 lookups.
func (s *WeightedState) Update(x int, nb neighbors, pred int32, actual int32) {
	if x < 0 || x >= len(s.curRow) {
		return
	}
	candidates := [4]int32{nb.w, nb.n, gradient(nb.w, nb.n, nb.nw), nb.ne}
	var rec errRecord
	for i, c := range candidates {
		rec.absErr[i] = abs32(c - actual)
	}
	rec.signedErr = actual - pred
	rec.valid = true
	s.curRow[x] = rec
}
