// Package stats computes goodness-of-fit statistics for a calibrated model.
// All functions ignore NaN entries pairwise.
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary groups the statistics shown in a fit report.
type Summary struct {
	NObs int     `json:"nobs"`
	EVP  float64 `json:"evp"`
	RMSE float64 `json:"rmse"`
	RSq  float64 `json:"rsq"`
	AIC  float64 `json:"aic"`
	BIC  float64 `json:"bic"`
}

// Summarize computes all statistics for observations obs, residuals res
// (same length) and nparam free parameters.
func Summarize(obs, res []float64, nparam int) Summary {
	o, r := pairwise(obs, res)
	return Summary{
		NObs: len(r),
		EVP:  evp(o, r),
		RMSE: rmse(r),
		RSq:  rsq(o, r),
		AIC:  aic(r, nparam),
		BIC:  bic(r, nparam),
	}
}

// RMSE returns the root mean squared residual.
func RMSE(res []float64) float64 {
	_, r := pairwise(res, res)
	return rmse(r)
}

// EVP returns the explained variance percentage, floored at zero.
func EVP(obs, res []float64) float64 {
	return evp(pairwise(obs, res))
}

// RSq returns the coefficient of determination.
func RSq(obs, res []float64) float64 {
	return rsq(pairwise(obs, res))
}

// AIC returns the Akaike information criterion.
func AIC(res []float64, nparam int) float64 {
	_, r := pairwise(res, res)
	return aic(r, nparam)
}

// BIC returns the Bayesian information criterion.
func BIC(res []float64, nparam int) float64 {
	_, r := pairwise(res, res)
	return bic(r, nparam)
}

// pairwise drops positions where either slice is NaN.
func pairwise(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	oa := make([]float64, 0, n)
	ob := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		oa = append(oa, a[i])
		ob = append(ob, b[i])
	}
	return oa, ob
}

func ssr(r []float64) float64 {
	return floats.Dot(r, r)
}

func rmse(r []float64) float64 {
	if len(r) == 0 {
		return math.NaN()
	}
	return math.Sqrt(ssr(r) / float64(len(r)))
}

func evp(o, r []float64) float64 {
	if len(o) < 2 {
		return math.NaN()
	}
	vo := stat.Variance(o, nil)
	if vo == 0 {
		return math.NaN()
	}
	return math.Max(0, 100*(1-stat.Variance(r, nil)/vo))
}

func rsq(o, r []float64) float64 {
	if len(o) == 0 {
		return math.NaN()
	}
	mean := stat.Mean(o, nil)
	var sst float64
	for _, v := range o {
		sst += (v - mean) * (v - mean)
	}
	if sst == 0 {
		return math.NaN()
	}
	return 1 - ssr(r)/sst
}

func aic(r []float64, nparam int) float64 {
	n := float64(len(r))
	if n == 0 {
		return math.NaN()
	}
	return n*math.Log(ssr(r)/n) + 2*float64(nparam)
}

func bic(r []float64, nparam int) float64 {
	n := float64(len(r))
	if n == 0 {
		return math.NaN()
	}
	return n*math.Log(ssr(r)/n) + float64(nparam)*math.Log(n)
}
