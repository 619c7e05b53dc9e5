// Package distance derives every named ecological distance matrix from a
// completed stats.Store. Every formula here is grounded directly on
// SimkaDistance.cpp from the original implementation (see DESIGN.md);
// this package never re-reads k-mers, only the additive aggregates the
// count-aggregation engine already produced.
package distance

import (
	"math"

	"github.com/grailbio/simka/stats"
)

// Matrix is a dense N x N distance matrix, row-major.
type Matrix struct {
	N    int
	Data []float64
}

// At returns m[i][j].
func (m Matrix) At(i, j int) float64 { return m.Data[i*m.N+j] }

func newMatrix(n int) Matrix { return Matrix{N: n, Data: make([]float64, n*n)} }

func (m Matrix) set(i, j int, v float64) { m.Data[i*m.N+j] = v }

// safeDiv returns num/den, or fallback when den is zero, so no formula
// ever produces NaN/Inf (spec's NumericFallback policy).
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

// Engine derives distance matrices from a read-only Store.
type Engine struct {
	s *stats.Store
}

// New constructs an Engine over s. s is borrowed read-only: Engine never
// mutates it.
func New(s *stats.Store) *Engine { return &Engine{s: s} }

// abc returns the presence/absence triple (a,b,c) for banks i,j.
func (e *Engine) abc(i, j int) (a, b, c float64) {
	s := e.s
	av := s.MatrixNbDistinctSharedKmers[stats.SymIndex(s.NbBanks, i, j)]
	a = float64(av)
	b = float64(s.NbSolidDistinctKmersPerBank[i]) - a
	c = float64(s.NbSolidDistinctKmersPerBank[j]) - a
	return
}

// symmetricMatrix fills both (i,j) and (j,i) of m with f(i,j), for i<j, leaving
// the diagonal at its zero value -- matching the reference
// implementation, which never writes the diagonal, satisfying testable
// property 6 (self-distance is 0) by construction.
func symmetricMatrix(n int, f func(i, j int) float64) Matrix {
	m := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := f(i, j)
			m.set(i, j, v)
			m.set(j, i, v)
		}
	}
	return m
}

// asymmetricMatrix fills (i,j) and (j,i) independently via f, for
// direction-sensitive measures (e.g. the asymmetric Simka-Jaccard).
func asymmetricMatrix(n int, f func(i, j int) float64) Matrix {
	m := newMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			m.set(i, j, f(i, j))
		}
	}
	return m
}

// ---- presence/absence measures ----

func (e *Engine) paChordHellinger(i, j int) float64 {
	a, b, c := e.abc(i, j)
	p1 := math.Sqrt((a + b) * (a + c))
	return math.Sqrt(2 * (1 - safeDiv(a, p1, 0)))
}

func (e *Engine) paWhittaker(i, j int) float64 {
	a, b, c := e.abc(i, j)
	p1 := safeDiv(b, a+b, 1)
	p2 := safeDiv(c, a+c, 1)
	p3 := safeDiv(a, a+b, 0)
	p4 := safeDiv(a, a+c, 0)
	return 0.5 * (p1 + p2 + math.Abs(p3-p4))
}

func (e *Engine) paKulczynski(i, j int) float64 {
	a, b, c := e.abc(i, j)
	p1 := safeDiv(a, a+b, 0)
	p2 := safeDiv(a, a+c, 0)
	return 1 - 0.5*(p1+p2)
}

func (e *Engine) paSorensenBrayCurtis(i, j int) float64 {
	a, b, c := e.abc(i, j)
	return safeDiv(b+c, 2*a+b+c, 1)
}

func (e *Engine) paOchiai(i, j int) float64 {
	a, b, c := e.abc(i, j)
	return 1 - safeDiv(a, math.Sqrt((a+b)*(a+c)), 0)
}

func (e *Engine) paJaccardCanberra(i, j int) float64 {
	a, b, c := e.abc(i, j)
	return safeDiv(b+c, a+b+c, 1)
}

func (e *Engine) paJaccardSimka(i, j int, asym bool) float64 {
	a, _, _ := e.abc(i, j)
	if asym {
		return 1 - safeDiv(a, float64(e.s.NbSolidDistinctKmersPerBank[i]), 0)
	}
	ji, _, _ := e.abc(i, j)
	num := 2 * ji
	den := float64(e.s.NbSolidDistinctKmersPerBank[i]) + float64(e.s.NbSolidDistinctKmersPerBank[j])
	return 1 - safeDiv(num, den, 0)
}

// ---- abundance measures ----

func (e *Engine) abBrayCurtis(i, j int) float64 {
	s := e.s
	num := float64(s.BrayCurtisNumerator[stats.SymIndex(s.NbBanks, i, j)])
	den := float64(s.NbSolidKmersPerBank[i]) + float64(s.NbSolidKmersPerBank[j])
	if den == 0 {
		return 1
	}
	return 1 - 2*num/den
}

func (e *Engine) abJaccardFromBrayCurtis(bc float64) float64 {
	return safeDiv(2*bc, 1+bc, 1)
}

func (e *Engine) abJaccardSimka(i, j int, asym bool) float64 {
	s := e.s
	A1 := float64(s.SharedKmers(i, j))
	B1 := float64(s.SharedKmers(j, i))
	A0 := float64(s.NbSolidKmersPerBank[i])
	B0 := float64(s.NbSolidKmersPerBank[j])
	if asym {
		return 1 - safeDiv(A1, A0, 0)
	}
	return 1 - safeDiv(A1+B1, A0+B0, 0)
}

func (e *Engine) abOchiai(i, j int) float64 {
	s := e.s
	A1 := float64(s.SharedKmers(i, j))
	B1 := float64(s.SharedKmers(j, i))
	A0 := float64(s.NbSolidKmersPerBank[i])
	B0 := float64(s.NbSolidKmersPerBank[j])
	if A0 == 0 || B0 == 0 {
		return 1
	}
	return 1 - math.Sqrt(A1/A0)*math.Sqrt(B1/B0)
}

func (e *Engine) abSorensen(i, j int) float64 {
	s := e.s
	A1 := float64(s.SharedKmers(i, j))
	B1 := float64(s.SharedKmers(j, i))
	A0 := float64(s.NbSolidKmersPerBank[i])
	B0 := float64(s.NbSolidKmersPerBank[j])
	num := 2 * A1 * B1
	den := A0*B1 + A1*B0
	return 1 - safeDiv(num, den, 0)
}

func (e *Engine) abJaccard(i, j int) float64 {
	s := e.s
	A1 := float64(s.SharedKmers(i, j))
	B1 := float64(s.SharedKmers(j, i))
	A0 := float64(s.NbSolidKmersPerBank[i])
	B0 := float64(s.NbSolidKmersPerBank[j])
	num := A1 * B1
	den := A0*B1 + A1*B0 - A1*B1
	return 1 - safeDiv(num, den, 0)
}

func (e *Engine) abChord(i, j int) float64 {
	s := e.s
	union := s.ChordSqrtN2[i] * s.ChordSqrtN2[j]
	if union == 0 {
		return math.Sqrt2
	}
	return math.Sqrt(2 - 2*s.ChordNiNj[i*s.NbBanks+j]/union)
}

func (e *Engine) abHellinger(i, j int) float64 {
	s := e.s
	union := math.Sqrt(float64(s.NbSolidKmersPerBank[i])) * math.Sqrt(float64(s.NbSolidKmersPerBank[j]))
	if union == 0 {
		return math.Sqrt2
	}
	intersection := 2 * s.HellingerSqrtNiNj[i*s.NbBanks+j]
	return math.Sqrt(2 - intersection/union)
}

func (e *Engine) abWhittaker(i, j int) float64 {
	s := e.s
	union := float64(s.NbSolidKmersPerBank[i]) * float64(s.NbSolidKmersPerBank[j])
	return 0.5 * safeDiv(s.WhittakerMinNiNj[i*s.NbBanks+j], union, 0)
}

func (e *Engine) abKullbackLeibler(i, j int) float64 {
	s := e.s
	v := 0.5 * s.KullbackLeibler[i*s.NbBanks+j]
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

func (e *Engine) abCanberra(i, j int) float64 {
	s := e.s
	a, b, c := e.abc(i, j)
	den := a + b + c
	return safeDiv(s.Canberra[i*s.NbBanks+j], den, 0)
}

func (e *Engine) abKulczynski(i, j int) float64 {
	s := e.s
	A0 := float64(s.NbSolidKmersPerBank[i])
	B0 := float64(s.NbSolidKmersPerBank[j])
	num := (A0 + B0) * s.KulczynskiMinNiNj[i*s.NbBanks+j]
	den := A0 * B0
	return 1 - 0.5*safeDiv(num, den, 0)
}

// All returns every supported distance matrix, keyed by the
// "<kind>_<name>" fragment used in output filenames (spec §6:
// mat_<kind>_<name>.csv.gz).
func (e *Engine) All() map[string]Matrix {
	n := e.s.NbBanks
	out := map[string]Matrix{
		"presenceAbsence_chord":                symmetricMatrix(n, e.paChordHellinger),
		"presenceAbsence_whittaker":             symmetricMatrix(n, e.paWhittaker),
		"presenceAbsence_kulczynski":            symmetricMatrix(n, e.paKulczynski),
		"presenceAbsence_braycurtis":            symmetricMatrix(n, e.paSorensenBrayCurtis),
		"presenceAbsence_jaccard":               symmetricMatrix(n, e.paJaccardCanberra),
		"presenceAbsence_simka-jaccard":         symmetricMatrix(n, func(i, j int) float64 { return e.paJaccardSimka(i, j, false) }),
		"presenceAbsence_simka-jaccard_asym":    asymmetricMatrix(n, func(i, j int) float64 { return e.paJaccardSimka(i, j, true) }),
		"presenceAbsence_ochiai":                symmetricMatrix(n, e.paOchiai),

		"abundance_simka-jaccard":      symmetricMatrix(n, func(i, j int) float64 { return e.abJaccardSimka(i, j, false) }),
		"abundance_simka-jaccard_asym": asymmetricMatrix(n, func(i, j int) float64 { return e.abJaccardSimka(i, j, true) }),
		"abundance_ab-ochiai":          symmetricMatrix(n, e.abOchiai),
		"abundance_ab-sorensen":        symmetricMatrix(n, e.abSorensen),
		"abundance_ab-jaccard":         symmetricMatrix(n, e.abJaccard),
	}

	out["abundance_braycurtis"] = symmetricMatrix(n, e.abBrayCurtis)
	out["abundance_jaccard_from_braycurtis"] = symmetricMatrix(n, func(i, j int) float64 {
		return e.abJaccardFromBrayCurtis(e.abBrayCurtis(i, j))
	})
	if e.s.ComputeSimpleDistances {
		out["abundance_chord"] = symmetricMatrix(n, e.abChord)
		out["abundance_hellinger"] = symmetricMatrix(n, e.abHellinger)
		out["abundance_kulczynski"] = symmetricMatrix(n, e.abKulczynski)
	}
	if e.s.ComputeComplexDistances {
		out["abundance_whittaker"] = symmetricMatrix(n, e.abWhittaker)
		out["abundance_jensenshannon"] = symmetricMatrix(n, e.abKullbackLeibler)
		out["abundance_canberra"] = symmetricMatrix(n, e.abCanberra)
	}
	return out
}

// Matrix returns one named matrix (same keys as All).
func (e *Engine) Matrix(name string) (Matrix, bool) {
	m, ok := e.All()[name]
	return m, ok
}
