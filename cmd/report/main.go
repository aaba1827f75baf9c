// Command report computes the statistics of a category over a dataset file,
// without any classifier.
//
//	report report --dataset data/initial-budget-participatif.csv --category Sport --budget 50000
//	report summary --dataset data/initial-budget-participatif.csv
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
