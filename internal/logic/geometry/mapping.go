package geometry

// LittlePlanet composes OutputToPolar, the projection and PolarToInput
// into the inverse map a resampler needs. The closure is bound to the
// shapes it was built with; build a fresh one for every source image.
func LittlePlanet(out, in Shape, proj Projection) InverseMap {
	return func(coords Batch) Batch {
		return PolarToInput(proj.Apply(OutputToPolar(coords, out)), in)
	}
}

// MapPoint runs a single output pixel through m. Handy for inspection;
// renderers should call m once on the whole grid.
func MapPoint(m InverseMap, x, y float64) (float64, float64) {
	res := m(Batch{Xs: []float64{x}, Ys: []float64{y}})
	return res.Xs[0], res.Ys[0]
}
