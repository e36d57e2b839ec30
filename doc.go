// Package ggeffects computes marginal effects and adjusted predictions for
// fitted regression models, returning them in a tidy, consistently shaped
// table suitable for direct plotting.
//
// Given a fitted model (linear, generalized linear, mixed-effects,
// zero-inflated, survival or Bayesian) and up to four focal predictors,
// ggeffects builds a reference grid of representative predictor values,
// obtains predictions through the model's own machinery and reshapes the
// result into a fixed schema: x, predicted, conf.low, conf.high, group,
// facet, panel.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/Maschette/ggeffects/effects"
//	    "github.com/Maschette/ggeffects/models"
//	)
//
//	func main() {
//	    df := models.NewDataFrame()
//	    df.AddFloat("mpg", []float64{21, 22.8, 21.4, 18.7, 18.1, 14.3})
//	    df.AddFloat("hp", []float64{110, 93, 110, 175, 105, 245})
//
//	    lm := models.NewLM()
//	    if err := lm.Fit(df, "mpg", []string{"hp"}); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    terms, _ := effects.ParseTerms([]string{"hp"})
//	    table, err := effects.Predict(lm, terms)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Print(table)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - effects: reference grid construction, prediction engine and the
//     tidy result table
//   - models: fitted model families (LM, GLM, Mixed, ZeroInflated, Cox,
//     Bayesian) and the adapter registry
//   - core/model: capability interfaces, term metadata, families and links
//   - pkg/errors: structured error types and warnings
//   - pkg/log: structured logging utilities
//
// Custom model types can participate by implementing the capability
// interfaces in core/model and registering an adapter factory with
// models.RegisterAdapter.
package ggeffects
