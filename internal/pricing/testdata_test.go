package pricing

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// carsFrame builds deterministic rows lo..hi-1 of a synthetic used-car table.
// Rows from 20 on use an Electric fuel type that never appears earlier.
func carsFrame(lo, hi int) dataframe.DataFrame {
	var (
		names        []string
		years        []int
		selling      []float64
		present      []float64
		kms          []int
		fuel         []string
		sellingTypes []string
		transmission []string
		owners       []int
	)
	fuels := []string{"Petrol", "Diesel", "CNG"}

	for i := lo; i < hi; i++ {
		year := 2008 + (i*3)%12
		sp := 1 + 0.37*float64(i) + float64((i*5)%7)*0.2
		f := fuels[i%3]
		if i >= 20 && i%2 == 0 {
			f = "Electric"
		}
		pp := 1.3*sp + 0.04*float64(2021-year) + 0.05*float64((i*13)%5-2)
		if f == "Diesel" {
			pp += 1.5
		}

		names = append(names, fmt.Sprintf("car-%02d", i))
		years = append(years, year)
		selling = append(selling, sp)
		present = append(present, pp)
		kms = append(kms, 5000+(i*7919)%60000)
		fuel = append(fuel, f)
		if i%2 == 0 {
			sellingTypes = append(sellingTypes, "Dealer")
		} else {
			sellingTypes = append(sellingTypes, "Individual")
		}
		if i%4 == 0 {
			transmission = append(transmission, "Automatic")
		} else {
			transmission = append(transmission, "Manual")
		}
		if i%5 == 0 {
			owners = append(owners, 1)
		} else {
			owners = append(owners, 0)
		}
	}

	return dataframe.New(
		series.New(names, series.String, "Car_Name"),
		series.New(years, series.Int, "Year"),
		series.New(selling, series.Float, "Selling_Price"),
		series.New(present, series.Float, "Present_Price"),
		series.New(kms, series.Int, "Driven_Kms"),
		series.New(fuel, series.String, "Fuel_Type"),
		series.New(sellingTypes, series.String, "Selling_type"),
		series.New(transmission, series.String, "Transmission"),
		series.New(owners, series.Int, "Owner"),
	)
}
