package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMAE(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			yPred:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "simple case",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.5, // (0.5 + 0.5 + 0.5 + 0.5) / 4 = 0.5
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "with negative differences",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{2.0, 1.0, 4.0, 3.0}),
			want:      1.0, // (1.0 + 1.0 + 1.0 + 1.0) / 4 = 1.0
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "dimension mismatch",
			yTrue:     mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			yPred:     mat.NewVecDense(2, []float64{1.0, 2.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MAE(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("MAE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if math.Abs(got-tt.want) > tt.tolerance {
					t.Errorf("MAE() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name      string
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "perfect prediction",
			yTrue:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			yPred:     mat.NewVecDense(5, []float64{1.0, 2.0, 3.0, 4.0, 5.0}),
			want:      1.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "constant yTrue, imperfect prediction",
			yTrue:     mat.NewVecDense(5, []float64{3.0, 3.0, 3.0, 3.0, 3.0}),
			yPred:     mat.NewVecDense(5, []float64{2.0, 3.0, 4.0, 3.0, 3.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:      "constant yTrue, perfect prediction",
			yTrue:     mat.NewVecDense(3, []float64{3.0, 3.0, 3.0}),
			yPred:     mat.NewVecDense(3, []float64{3.0, 3.0, 3.0}),
			want:      1.0,
			tolerance: 1e-10,
			wantErr:   false,
		},
		{
			name:    "empty",
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
		{
			name:      "worse than mean baseline",
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{4.0, 3.0, 2.0, 1.0}),
			want:      -3.0, // Negative R² value (worse than mean prediction)
			tolerance: 0.01,
			wantErr:   false,
		},
		{
			name:      "dimension mismatch",
			yTrue:     mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			yPred:     mat.NewVecDense(2, []float64{1.0, 2.0}),
			want:      0.0,
			tolerance: 1e-10,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)

			if (err != nil) != tt.wantErr {
				t.Errorf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if math.Abs(got-tt.want) > tt.tolerance {
					t.Errorf("R2Score() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestR2ScoreMultiOutput(t *testing.T) {
	yTrue := mat.NewDense(4, 3, []float64{
		1, 5, 2,
		2, 5, 4,
		3, 5, 6,
		4, 5, 8,
	})
	yPred := mat.NewDense(4, 3, []float64{
		1, 5, 8,
		2, 5, 6,
		3, 5, 4,
		4, 5, 2,
	})

	got, err := R2ScoreMultiOutput(yTrue, yPred)
	if err != nil {
		t.Fatalf("R2ScoreMultiOutput() error = %v", err)
	}
	want := []float64{1, 1, -3}
	for j, w := range want {
		if math.Abs(got.PerTarget[j]-w) > 1e-10 {
			t.Errorf("output %d: R2 = %v, want %v", j, got.PerTarget[j], w)
		}
	}
	if math.Abs(got.Average-(-1.0/3.0)) > 1e-10 {
		t.Errorf("Average = %v, want %v", got.Average, -1.0/3.0)
	}

	// a single column must agree with R2Score
	single, err := R2Score(mat.NewVecDense(4, mat.Col(nil, 2, yTrue)), mat.NewVecDense(4, mat.Col(nil, 2, yPred)))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(single-got.PerTarget[2]) > 1e-12 {
		t.Errorf("R2Score = %v, multi-output column = %v", single, got.PerTarget[2])
	}
}

func TestR2ScoreMultiOutputConstantTarget(t *testing.T) {
	yTrue := mat.NewDense(3, 1, []float64{5, 5, 5})
	got, err := R2ScoreMultiOutput(yTrue, mat.NewDense(3, 1, []float64{5, 6, 5}))
	if err != nil {
		t.Fatal(err)
	}
	if got.PerTarget[0] != 0 {
		t.Errorf("imperfect prediction of a constant target should score 0, got %v", got.PerTarget[0])
	}
}

func TestMAEMultiOutput(t *testing.T) {
	yTrue := mat.NewDense(2, 2, []float64{1, 10, 3, 20})
	yPred := mat.NewDense(2, 2, []float64{2, 10, 1, 26})

	got, err := MAEMultiOutput(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	if got.PerTarget[0] != 1.5 || got.PerTarget[1] != 3 {
		t.Errorf("PerTarget = %v, want [1.5 3]", got.PerTarget)
	}
	if got.Average != 2.25 {
		t.Errorf("Average = %v, want 2.25", got.Average)
	}
}

func TestMultiOutputDimensionErrors(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	if _, err := R2ScoreMultiOutput(a, mat.NewDense(3, 2, nil)); err == nil {
		t.Error("row mismatch should fail")
	}
	if _, err := MAEMultiOutput(a, mat.NewDense(2, 3, nil)); err == nil {
		t.Error("column mismatch should fail")
	}
}

// Every column of the multi-output scores goes through the single-output
// functions, so the two must agree column by column.
func TestMultiOutputMatchesSingleOutput(t *testing.T) {
	yTrue := mat.NewDense(5, 3, []float64{
		10, 7, 1,
		20, 7, 3,
		35, 7, 2,
		50, 7, 8,
		80, 7, 4,
	})
	yPred := mat.NewDense(5, 3, []float64{
		12, 7, 2,
		18, 8, 3,
		30, 7, 5,
		55, 7, 6,
		70, 6, 4,
	})

	r2, err := R2ScoreMultiOutput(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	mae, err := MAEMultiOutput(yTrue, yPred)
	if err != nil {
		t.Fatal(err)
	}
	for j := 0; j < 3; j++ {
		colTrue := mat.NewVecDense(5, mat.Col(nil, j, yTrue))
		colPred := mat.NewVecDense(5, mat.Col(nil, j, yPred))
		wantR2, err := R2Score(colTrue, colPred)
		if err != nil {
			t.Fatal(err)
		}
		wantMAE, err := MAE(colTrue, colPred)
		if err != nil {
			t.Fatal(err)
		}
		if r2.PerTarget[j] != wantR2 {
			t.Errorf("output %d: R2 = %v, want %v", j, r2.PerTarget[j], wantR2)
		}
		if mae.PerTarget[j] != wantMAE {
			t.Errorf("output %d: MAE = %v, want %v", j, mae.PerTarget[j], wantMAE)
		}
	}
	if r2.PerTarget[1] != 0 {
		t.Errorf("constant column should score 0, got %v", r2.PerTarget[1])
	}
}
