package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// vectorFloats copies the contents of a vector into a
// []float64, regardless of the numeric type.
func vectorFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return append([]float64{}, data...)
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}

// numericFloat converts a numeric to a float64.
func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric: %T", n))
	}
}

func constVector(c anyvec.Creator, vals []float64) *anydiff.Const {
	return anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(vals)))
}

func zeroVector(c anyvec.Creator, size int) *anydiff.Const {
	return anydiff.NewConst(c.MakeVector(size))
}

// gather creates a vector whose i-th component is
// in[table[i]].
func gather(in anydiff.Res, table []int) anydiff.Res {
	c := in.Output().Creator()
	return anydiff.Map(c.MakeMapper(in.Output().Len(), table), in)
}

// tile repeats the entire vector reps times.
func tile(in anydiff.Res, reps int) anydiff.Res {
	size := in.Output().Len()
	table := make([]int, size*reps)
	for i := range table {
		table[i] = i % size
	}
	return gather(in, table)
}

// repeatEach repeats every component of the vector
// width times in a row.
func repeatEach(in anydiff.Res, width int) anydiff.Res {
	table := make([]int, in.Output().Len()*width)
	for i := range table {
		table[i] = i / width
	}
	return gather(in, table)
}

// concatCols joins two row-major matrices with the same
// number of rows side by side.
func concatCols(a, b anydiff.Res, rows int) anydiff.Res {
	colsA := a.Output().Len() / rows
	colsB := b.Output().Len() / rows
	if colsA*rows != a.Output().Len() || colsB*rows != b.Output().Len() {
		panic("matrix sizes do not match row count")
	}
	offset := a.Output().Len()
	table := make([]int, 0, rows*(colsA+colsB))
	for row := 0; row < rows; row++ {
		for col := 0; col < colsA; col++ {
			table = append(table, row*colsA+col)
		}
		for col := 0; col < colsB; col++ {
			table = append(table, offset+row*colsB+col)
		}
	}
	return gather(anydiff.Concat(a, b), table)
}

// sumSteps sums a time-major [steps x rest] matrix over
// the time dimension.
func sumSteps(in anydiff.Res, steps int) anydiff.Res {
	c := in.Output().Creator()
	ones := c.MakeVector(steps)
	ones.AddScalar(c.MakeNumeric(1))
	return anydiff.MatMul(false, false,
		&anydiff.Matrix{Data: anydiff.NewConst(ones), Rows: 1, Cols: steps},
		&anydiff.Matrix{Data: in, Rows: steps, Cols: in.Output().Len() / steps},
	).Data
}

// dotRows computes the dot product of every row of a
// [rows x len(v)] matrix with v.
func dotRows(m, v anydiff.Res, rows int) anydiff.Res {
	cols := v.Output().Len()
	return anydiff.MatMul(false, true,
		&anydiff.Matrix{Data: m, Rows: rows, Cols: cols},
		&anydiff.Matrix{Data: v, Rows: 1, Cols: cols},
	).Data
}

// matrixRows splits a row-major matrix into rows.
func matrixRows(v anyvec.Vector, cols int) [][]float64 {
	data := vectorFloats(v)
	res := make([][]float64, len(data)/cols)
	for i := range res {
		res[i] = data[i*cols : (i+1)*cols]
	}
	return res
}

func argmax(vals []float64) int {
	var best int
	for i, x := range vals {
		if x > vals[best] {
			best = i
		}
	}
	return best
}
