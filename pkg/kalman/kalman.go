// Package kalman implements a per-axis constant-acceleration Kalman filter.
//
// Each Filter tracks a single image axis with a two element state
// (position, velocity). Velocity is carried unchanged by the transition and
// random acceleration enters through the process noise, so the filter
// coasts along the last observed velocity when measurements are missing.
package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Config holds the fixed noise parameters of a Filter.
type Config struct {
	// ProcessNoise (q) is the white acceleration intensity.
	ProcessNoise float64

	// MeasurementNoise (r) is the variance of a position measurement.
	MeasurementNoise float64

	// InitialVariance is placed on the covariance diagonal by Reset.
	InitialVariance float64
}

// DefaultConfig returns noise parameters tuned for normalized image
// coordinates sampled at camera frame rates.
func DefaultConfig() Config {
	return Config{
		ProcessNoise:     50.0,   // ball accelerations are large in normalized units/s²
		MeasurementNoise: 1.0e-4, // ~1% of the frame, one sigma
		InitialVariance:  1.0,    // whole frame is plausible
	}
}

// Filter is a 2-state (position, velocity) Kalman filter for one axis.
// It is not safe for concurrent use.
type Filter struct {
	config Config

	// x is the state vector [p, v]
	x *mat.VecDense
	// p is the state covariance
	p *mat.SymDense
	// inn is the last innovation
	inn float64

	initialized bool
}

// New creates an uninitialized filter.
func New(config Config) *Filter {
	return &Filter{
		config: config,
		x:      mat.NewVecDense(2, nil),
		p:      mat.NewSymDense(2, nil),
	}
}

// Config returns the filter noise parameters.
func (f *Filter) Config() Config {
	return f.config
}

// Initialized reports whether the filter holds a fix.
func (f *Filter) Initialized() bool {
	return f.initialized
}

// Reset initializes the filter on measurement z with zero velocity and
// full uncertainty.
func (f *Filter) Reset(z float64) {
	f.x.SetVec(0, z)
	f.x.SetVec(1, 0)
	f.p.SetSym(0, 0, f.config.InitialVariance)
	f.p.SetSym(0, 1, 0)
	f.p.SetSym(1, 1, f.config.InitialVariance)
	f.inn = 0
	f.initialized = true
}

// Clear tears the filter down to the uninitialized state.
func (f *Filter) Clear() {
	f.x.Zero()
	f.p.Zero()
	f.inn = 0
	f.initialized = false
}

// Predict propagates the state by dt seconds.
// Negative or non-finite dt is treated as zero.
func (f *Filter) Predict(dt float64) {
	if !f.initialized {
		return
	}
	dt = sanitize(dt)

	fm := transition(dt)

	// x = F x
	var x mat.VecDense
	x.MulVec(fm, f.x)
	f.x.CopyVec(&x)

	// P = F P F' + Q
	var fp, fpf mat.Dense
	fp.Mul(fm, f.p)
	fpf.Mul(&fp, fm.T())

	q := processNoise(f.config.ProcessNoise, dt)
	for i := 0; i < 2; i++ {
		for j := i; j < 2; j++ {
			f.p.SetSym(i, j, fpf.At(i, j)+q.At(i, j))
		}
	}
}

// Update corrects the state with a position measurement z.
func (f *Filter) Update(z float64) {
	if !f.initialized {
		f.Reset(z)
		return
	}

	// H = [1 0]: the innovation covariance and gain reduce to scalars.
	y := z - f.x.AtVec(0)
	s := f.p.At(0, 0) + f.config.MeasurementNoise
	if s <= 0 || math.IsNaN(s) {
		return
	}
	k := mat.NewVecDense(2, []float64{f.p.At(0, 0) / s, f.p.At(1, 0) / s})

	f.x.AddScaledVec(f.x, y, k)

	// P = (I - K H) P
	ikh := mat.NewDense(2, 2, []float64{
		1 - k.AtVec(0), 0,
		-k.AtVec(1), 1,
	})
	var pn mat.Dense
	pn.Mul(ikh, f.p)
	for i := 0; i < 2; i++ {
		for j := i; j < 2; j++ {
			f.p.SetSym(i, j, pn.At(i, j))
		}
	}
	f.inn = y
}

// Position returns the estimated position.
func (f *Filter) Position() float64 {
	return f.x.AtVec(0)
}

// Velocity returns the estimated velocity in units per second.
func (f *Filter) Velocity() float64 {
	return f.x.AtVec(1)
}

// Extrapolate returns p + v·dt without changing the filter.
func (f *Filter) Extrapolate(dt float64) float64 {
	return f.x.AtVec(0) + f.x.AtVec(1)*sanitize(dt)
}

// Innovation returns the residual of the last Update.
func (f *Filter) Innovation() float64 {
	return f.inn
}

// Covariance returns a copy of the state covariance.
func (f *Filter) Covariance() *mat.SymDense {
	c := mat.NewSymDense(2, nil)
	c.CopySym(f.p)
	return c
}

// transition returns F = [[1, dt], [0, 1]].
func transition(dt float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		1, dt,
		0, 1,
	})
}

// processNoise returns the constant-acceleration Q(dt).
func processNoise(q, dt float64) *mat.SymDense {
	dt2 := dt * dt
	return mat.NewSymDense(2, []float64{
		q * dt2 * dt2 / 4, q * dt2 * dt / 2,
		q * dt2 * dt / 2, q * dt2,
	})
}

func sanitize(dt float64) float64 {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0
	}
	return dt
}
