package sparse

import (
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestBuilder_Build(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		cols     int
		triplets [][3]float64
		want     map[[2]int]float64
		wantNNZ  int
	}{
		{
			name:    "empty builder",
			rows:    0,
			cols:    0,
			want:    map[[2]int]float64{},
			wantNNZ: 0,
		},
		{
			name: "unsorted input is ordered per row",
			rows: 2,
			cols: 3,
			triplets: [][3]float64{
				{1, 2, 4},
				{0, 1, 2},
				{1, 0, 3},
				{0, 0, 1},
			},
			want: map[[2]int]float64{
				{0, 0}: 1, {0, 1}: 2, {1, 0}: 3, {1, 2}: 4,
			},
			wantNNZ: 4,
		},
		{
			name: "duplicate pair is summed",
			rows: 1,
			cols: 1,
			triplets: [][3]float64{
				{0, 0, 3},
				{0, 0, 5},
			},
			want:    map[[2]int]float64{{0, 0}: 8},
			wantNNZ: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.rows, tt.cols)
			for _, tr := range tt.triplets {
				if err := b.Add(int(tr[0]), int(tr[1]), tr[2]); err != nil {
					t.Fatalf("Add() error = %v", err)
				}
			}
			m := b.Build()
			if r, c := m.Shape(); r != tt.rows || c != tt.cols {
				t.Errorf("Shape() = (%d, %d), want (%d, %d)", r, c, tt.rows, tt.cols)
			}
			if m.NNZ() != tt.wantNNZ {
				t.Errorf("NNZ() = %d, want %d", m.NNZ(), tt.wantNNZ)
			}
			for pos, want := range tt.want {
				if got := m.At(pos[0], pos[1]); got != want {
					t.Errorf("At(%d, %d) = %v, want %v", pos[0], pos[1], got, want)
				}
			}
			for i := 0; i < tt.rows; i++ {
				cols, _ := m.Row(i)
				if !slices.IsSorted(cols) {
					t.Errorf("Row(%d) columns not sorted: %v", i, cols)
				}
			}
		})
	}
}

func TestBuilder_AddOutOfRange(t *testing.T) {
	b := NewBuilder(2, 2)
	for _, pos := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 2}} {
		if err := b.Add(pos[0], pos[1], 1); err == nil {
			t.Errorf("Add(%d, %d) error = nil, want out of range", pos[0], pos[1])
		}
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestCSR_Transpose(t *testing.T) {
	b := NewBuilder(3, 2)
	_ = b.Add(0, 0, 5)
	_ = b.Add(0, 1, 5)
	_ = b.Add(1, 0, 4)
	_ = b.Add(2, 1, 5)
	m := b.Build()

	tr := m.Transpose()
	if r, c := tr.Shape(); r != 2 || c != 3 {
		t.Fatalf("Transpose().Shape() = (%d, %d), want (2, 3)", r, c)
	}
	if tr.NNZ() != m.NNZ() {
		t.Errorf("Transpose().NNZ() = %d, want %d", tr.NNZ(), m.NNZ())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			if m.At(i, j) != tr.At(j, i) {
				t.Errorf("At(%d, %d) = %v, transposed = %v", i, j, m.At(i, j), tr.At(j, i))
			}
		}
	}

	rows, vals := m.Col(1)
	if !slices.Equal(rows, []int{0, 2}) || !slices.Equal(vals, []float64{5, 5}) {
		t.Errorf("Col(1) = %v %v, want [0 2] [5 5]", rows, vals)
	}
	trRows, trVals := tr.Row(1)
	if !slices.Equal(rows, trRows) || !slices.Equal(vals, trVals) {
		t.Errorf("Col(1) and Transpose().Row(1) differ: %v %v vs %v %v", rows, vals, trRows, trVals)
	}
}

func TestCSR_RowNormsAndDense(t *testing.T) {
	b := NewBuilder(3, 2)
	_ = b.Add(0, 0, 3)
	_ = b.Add(0, 1, 4)
	_ = b.Add(2, 1, 2)
	m := b.Build()

	norms := m.RowNorms()
	want := []float64{5, 0, 2}
	for i := range want {
		if math.Abs(norms[i]-want[i]) > 1e-12 {
			t.Errorf("RowNorms()[%d] = %v, want %v", i, norms[i], want[i])
		}
	}

	d := m.ToDense()
	wantDense := mat.NewDense(3, 2, []float64{3, 4, 0, 0, 0, 2})
	if !mat.Equal(d, wantDense) {
		t.Errorf("ToDense() = %v, want %v", mat.Formatted(d), mat.Formatted(wantDense))
	}

	if Empty(0, 0).ToDense() != nil {
		t.Error("ToDense() of empty matrix should be nil")
	}
}
