// Package fractal evaluates the quadratic Mandelbrot map and maps between
// pixel space and the complex plane.
package fractal

// Iterate returns how many steps of z = z^2 + c, starting at z = 0 with
// c = cre + i*cim, run before |z| exceeds 2. A result of maxIt means the
// point did not escape and is treated as inside the set.
func Iterate(cre, cim float64, maxIt uint32) uint32 {
	if inCardioid(cre, cim) || inPeriod2Bulb(cre, cim) {
		return maxIt
	}

	var zre, zim, zre2, zim2 float64
	var it uint32
	for ; zre2+zim2 <= 4 && it < maxIt; it += 1 {
		zim = 2*zre*zim + cim
		zre = zre2 - zim2 + cre
		zre2 = zre * zre
		zim2 = zim * zim
	}
	return it
}

func inCardioid(cre, cim float64) bool {
	xs := cre - 0.25
	q := xs*xs + cim*cim
	return q*(q+xs) < 0.25*cim*cim
}

// disc of radius 1/4 around -1
func inPeriod2Bulb(cre, cim float64) bool {
	xs := cre + 1
	return xs*xs+cim*cim < 0.0625
}
