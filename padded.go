package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// Padded is a time-major batch of right-padded
// sequences of vectors.
//
// Data stores maxLen*len(Lengths)*VecSize components:
// the vectors of every sequence at step 0, then the
// vectors of every sequence at step 1, etc.
//
// Lengths must be sorted in descending order, and every
// length must be between 1 and the padded length.
// The content of padded slots is ignored.
type Padded struct {
	Data    anydiff.Res
	Lengths []int
	VecSize int
}

// MaxLen returns the padded sequence length.
func (p *Padded) MaxLen() int {
	return p.Data.Output().Len() / (len(p.Lengths) * p.VecSize)
}

// check panics if the batch violates one of its
// preconditions.
func (p *Padded) check() {
	if len(p.Lengths) == 0 {
		panic("cannot encode an empty batch")
	}
	if p.VecSize <= 0 || p.Data.Output().Len()%(len(p.Lengths)*p.VecSize) != 0 {
		panic(fmt.Sprintf("data size %d does not fit batch of %d vectors of size %d",
			p.Data.Output().Len(), len(p.Lengths), p.VecSize))
	}
	maxLen := p.MaxLen()
	for i, l := range p.Lengths {
		if l < 1 || l > maxLen {
			panic(fmt.Sprintf("sequence %d has length %d outside of [1, %d]", i, l, maxLen))
		}
		if i > 0 && l > p.Lengths[i-1] {
			panic("sequence lengths must be sorted in descending order")
		}
	}
}

// activeCounts returns, for each timestep, the number of
// sequences which have not ended yet.
func (p *Padded) activeCounts() []int {
	res := make([]int, p.MaxLen())
	for t := range res {
		for _, l := range p.Lengths {
			if l > t {
				res[t]++
			}
		}
	}
	return res
}

// stepInputs returns the input vectors of the first n
// sequences at timestep t.
func (p *Padded) stepInputs(t, n int) anydiff.Res {
	start := t * len(p.Lengths) * p.VecSize
	return anydiff.Slice(p.Data, start, start+n*p.VecSize)
}

// Seq converts the batch into an anyseq.Seq.
// A sequence is absent from every step past its length,
// and trailing steps that no sequence reaches are left
// out entirely.
func (p *Padded) Seq() anyseq.Seq {
	c := p.Data.Output().Creator()
	return anyseq.PoolFromVec(p.Data, func(data anydiff.Res) anyseq.Seq {
		pooled := &Padded{Data: data, Lengths: p.Lengths, VecSize: p.VecSize}
		var steps []*anyseq.ResBatch
		for t, n := range p.activeCounts() {
			if n == 0 {
				break
			}
			present := make([]bool, len(p.Lengths))
			for i := 0; i < n; i++ {
				present[i] = true
			}
			steps = append(steps, &anyseq.ResBatch{
				Packed:  pooled.stepInputs(t, n),
				Present: present,
			})
		}
		return anyseq.ResSeq(c, steps)
	})
}

// padSeq is the inverse of Padded.Seq.
// It produces a time-major [steps*batch x width] matrix
// with zero rows for absent sequences.
//
// Present sequences must form a prefix of every batch,
// as they do for Padded batches.
func padSeq(s anyseq.Seq, steps int) anydiff.Res {
	out := s.Output()
	if len(out) == 0 || len(out) > steps {
		panic(fmt.Sprintf("cannot pad %d timesteps to %d", len(out), steps))
	}
	batch := len(out[0].Present)
	width := out[0].Packed.Len() / out[0].NumPresent()

	c := s.Creator()
	var parts []anyvec.Vector
	for _, b := range out {
		parts = append(parts, b.Packed)
		if n := b.NumPresent(); n < batch {
			parts = append(parts, c.MakeVector((batch-n)*width))
		}
	}
	if rest := steps - len(out); rest > 0 {
		parts = append(parts, c.MakeVector(rest*batch*width))
	}
	return &padSeqRes{
		In:    s,
		Width: width,
		Out:   c.Concat(parts...),
	}
}

type padSeqRes struct {
	In    anyseq.Seq
	Width int
	Out   anyvec.Vector
}

func (p *padSeqRes) Output() anyvec.Vector {
	return p.Out
}

func (p *padSeqRes) Vars() anydiff.VarSet {
	return p.In.Vars()
}

func (p *padSeqRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	out := p.In.Output()
	stepSize := len(out[0].Present) * p.Width
	upstream := make([]*anyseq.Batch, len(out))
	for t, b := range out {
		start := t * stepSize
		upstream[t] = &anyseq.Batch{
			Packed:  u.Slice(start, start+b.NumPresent()*p.Width),
			Present: b.Present,
		}
	}
	p.In.Propagate(upstream, g)
}
