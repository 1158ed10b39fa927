// Package carbon converts traded energy into avoided CO2 emissions.
package carbon

// DefaultFactorKgPerKWH is the Singapore grid emission factor.
const DefaultFactorKgPerKWH = 0.4083

// Calculator converts kWh to CO2 mass using a fixed grid factor.
type Calculator struct {
	kgPerKWH float64
}

// NewCalculator creates a Calculator; a non-positive factor falls back to
// the default.
func NewCalculator(kgPerKWH float64) *Calculator {
	if kgPerKWH <= 0 {
		kgPerKWH = DefaultFactorKgPerKWH
	}
	return &Calculator{kgPerKWH: kgPerKWH}
}

// KgCO2 converts energy in kWh to kilograms of CO2.
func (c *Calculator) KgCO2(kwh float64) float64 {
	return kwh * c.kgPerKWH
}

// TonnesCO2 converts energy in kWh to tonnes of CO2.
func (c *Calculator) TonnesCO2(kwh float64) float64 {
	return c.KgCO2(kwh) / 1000.0
}
